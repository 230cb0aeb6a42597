package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

// IdentityResolver maps a phone number to its backend customer.
type IdentityResolver struct {
	backend ticketing.Backend
	scheme  domain.IdentityScheme
	logger  *zap.Logger
	metrics *observability.Metrics
}

// IdentityDependencies bundles collaborators for the identity resolver.
type IdentityDependencies struct {
	Backend ticketing.Backend
	Scheme  domain.IdentityScheme
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewIdentityResolver constructs the resolver.
func NewIdentityResolver(deps IdentityDependencies) *IdentityResolver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityResolver{
		backend: deps.Backend,
		scheme:  deps.Scheme,
		logger:  logger,
		metrics: deps.Metrics,
	}
}

// Scheme returns the derivation in use.
func (r *IdentityResolver) Scheme() domain.IdentityScheme {
	return r.scheme
}

// ResolveOrCreate finds or creates the customer for phone. It never fails:
// when the backend cannot be used it returns a degraded identity without an
// external id, keyed by the derived email.
func (r *IdentityResolver) ResolveOrCreate(ctx context.Context, phone domain.PhoneNumber) domain.CustomerIdentity {
	identity := domain.CustomerIdentity{
		Email: r.scheme.DerivedEmail(phone),
		Phone: phone,
	}

	customer, err := r.backend.FindCustomerByEmail(ctx, identity.Email)
	if err == nil {
		identity.ExternalID = customer.ID
		return identity
	}
	if !errors.Is(err, ticketing.ErrNotFound) {
		return r.degraded(identity, "find customer", err)
	}

	legacyEmail := r.scheme.LegacyEmail(phone)
	customer, err = r.backend.FindCustomerByEmail(ctx, legacyEmail)
	if err == nil {
		identity.ExternalID = customer.ID
		identity.Email = legacyEmail
		r.logger.Info("customer found under legacy email",
			zap.String("phone", phone.String()),
			zap.String("customer_id", customer.ID))
		return identity
	}
	if !errors.Is(err, ticketing.ErrNotFound) {
		return r.degraded(identity, "find legacy customer", err)
	}

	customer, err = r.backend.CreateCustomer(ctx, ticketing.CustomerInput{
		Email: identity.Email,
		Name:  "SMS " + phone.String(),
		Phone: phone,
		Channels: []domain.ContactChannel{
			{Type: "phone", Address: phone.String()},
			{Type: "email", Address: identity.Email},
		},
	})
	if err != nil {
		// another writer may have created it between the lookup and the create
		if existing, findErr := r.backend.FindCustomerByEmail(ctx, identity.Email); findErr == nil {
			identity.ExternalID = existing.ID
			return identity
		}
		return r.degraded(identity, "create customer", err)
	}
	identity.ExternalID = customer.ID
	r.logger.Info("customer created",
		zap.String("phone", phone.String()),
		zap.String("customer_id", customer.ID))
	return identity
}

func (r *IdentityResolver) degraded(identity domain.CustomerIdentity, op string, err error) domain.CustomerIdentity {
	identity.Degraded = true
	r.metrics.RecordDegradation("identity")
	r.logger.Warn("identity resolution degraded",
		zap.String("code", apperrors.CodeIdentityDegraded),
		zap.String("operation", op),
		zap.String("phone", identity.Phone.String()),
		zap.Error(err))
	return identity
}
