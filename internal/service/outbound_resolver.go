package service

import (
	"strings"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

// AddressStrategy extracts a candidate destination from an outbound event.
type AddressStrategy struct {
	Name    string
	Extract func(domain.OutboundEvent) (string, bool)
}

// OutboundResolver recovers the phone number an agent reply goes to.
type OutboundResolver struct {
	strategies []AddressStrategy
}

// NewOutboundResolver builds the default strategy chain for scheme.
func NewOutboundResolver(scheme domain.IdentityScheme) *OutboundResolver {
	return &OutboundResolver{strategies: DefaultAddressStrategies(scheme)}
}

// NewOutboundResolverWithStrategies uses a custom chain.
func NewOutboundResolverWithStrategies(strategies ...AddressStrategy) *OutboundResolver {
	return &OutboundResolver{strategies: strategies}
}

// DefaultAddressStrategies is the fallback chain in priority order.
func DefaultAddressStrategies(scheme domain.IdentityScheme) []AddressStrategy {
	return []AddressStrategy{
		{Name: "customer_phone", Extract: func(e domain.OutboundEvent) (string, bool) {
			return e.Customer.Phone, e.Customer.Phone != ""
		}},
		{Name: "original_message_from", Extract: func(e domain.OutboundEvent) (string, bool) {
			return e.OriginalFrom, e.OriginalFrom != ""
		}},
		{Name: "customer_channel", Extract: func(e domain.OutboundEvent) (string, bool) {
			for _, ch := range e.Customer.Channels {
				if ch.Address == "" || strings.EqualFold(ch.Type, "email") || strings.Contains(ch.Address, "@") {
					continue
				}
				return ch.Address, true
			}
			return "", false
		}},
		{Name: "first_message_source", Extract: func(e domain.OutboundEvent) (string, bool) {
			return e.FirstMessage, e.FirstMessage != ""
		}},
		{Name: "derived_email", Extract: func(e domain.OutboundEvent) (string, bool) {
			phone, ok := scheme.PhoneFromDerivedEmail(e.Customer.Email)
			return phone.String(), ok
		}},
	}
}

// ResolveDestination walks the chain and returns the first candidate that
// normalizes to a phone number, with the name of the strategy that found it.
func (r *OutboundResolver) ResolveDestination(event domain.OutboundEvent) (domain.PhoneNumber, string, error) {
	for _, strategy := range r.strategies {
		raw, ok := strategy.Extract(event)
		if !ok {
			continue
		}
		phone, err := domain.NormalizePhone(raw)
		if err != nil {
			continue
		}
		return phone, strategy.Name, nil
	}
	return "", "", apperrors.NewUnresolvableAddress(event.TicketID)
}
