package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/events"
	"github.com/spec-kit/sms-ticket-bridge/internal/gateway"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

// Reasons reported with an ignored relay.
const (
	IgnoreNotAgentSMS = "not an agent sms reply"
	IgnoreOptedOut    = "destination opted out"
	IgnoreEmptyBody   = "empty message body"
)

// RelayResult is the acknowledgement of an outbound event.
type RelayResult struct {
	Ignored      bool
	IgnoreReason string
	Destination  domain.PhoneNumber
	DeliveryID   string
	Strategy     string
}

// RelayService forwards agent replies to the SMS gateway.
type RelayService struct {
	resolver      *OutboundResolver
	sender        gateway.Sender
	subscriptions *SubscriptionService
	from          domain.PhoneNumber
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// RelayDependencies bundles collaborators for the relay.
type RelayDependencies struct {
	Resolver      *OutboundResolver
	Sender        gateway.Sender
	Subscriptions *SubscriptionService
	FromNumber    domain.PhoneNumber
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewRelayService constructs the relay.
func NewRelayService(deps RelayDependencies) *RelayService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayService{
		resolver:      deps.Resolver,
		sender:        deps.Sender,
		subscriptions: deps.Subscriptions,
		from:          deps.FromNumber,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		metrics:       deps.Metrics,
	}
}

// Relay sends an agent reply to the customer's phone. Events that are not
// agent SMS replies are ignored without error.
func (s *RelayService) Relay(ctx context.Context, event domain.OutboundEvent) (*RelayResult, error) {
	if !event.IsRelayable() {
		s.metrics.RecordRelay("ignored", "")
		return &RelayResult{Ignored: true, IgnoreReason: IgnoreNotAgentSMS}, nil
	}
	if event.Body == "" {
		s.metrics.RecordRelay("ignored", "")
		return &RelayResult{Ignored: true, IgnoreReason: IgnoreEmptyBody}, nil
	}

	destination, strategy, err := s.resolver.ResolveDestination(event)
	if err != nil {
		s.metrics.RecordRelay("unresolvable", "")
		s.logger.Warn("no destination for agent reply",
			zap.String("code", apperrors.CodeUnresolvableAddress),
			zap.String("ticket_id", event.TicketID),
			zap.String("customer_email", event.Customer.Email))
		return nil, err
	}

	if s.subscriptions != nil {
		optedOut, err := s.subscriptions.IsOptedOut(ctx, destination)
		if err != nil {
			s.logger.Warn("subscription lookup failed, sending anyway",
				zap.String("phone", destination.String()),
				zap.Error(err))
		}
		if optedOut {
			s.metrics.RecordRelay("opted_out", strategy)
			s.logger.Info("agent reply suppressed, destination opted out",
				zap.String("ticket_id", event.TicketID),
				zap.String("phone", destination.String()))
			return &RelayResult{Ignored: true, IgnoreReason: IgnoreOptedOut, Destination: destination, Strategy: strategy}, nil
		}
	}

	deliveryID, err := s.sender.Send(ctx, gateway.OutboundSMS{Body: event.Body, From: s.from, To: destination})
	if err != nil {
		s.metrics.RecordRelay("send_failed", strategy)
		s.logger.Error("sms send failed",
			zap.String("code", apperrors.CodeSendFailed),
			zap.String("ticket_id", event.TicketID),
			zap.String("phone", destination.String()),
			zap.Error(err))
		return nil, apperrors.NewSendFailed(err)
	}

	s.metrics.RecordRelay("sent", strategy)
	s.logger.Info("agent reply relayed",
		zap.String("ticket_id", event.TicketID),
		zap.String("phone", destination.String()),
		zap.String("strategy", strategy),
		zap.String("delivery_id", deliveryID))
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventSMSRelayed, event.TicketID, destination,
		events.SMSRelayedPayload{DeliveryID: deliveryID, Strategy: strategy}))
	return &RelayResult{Destination: destination, DeliveryID: deliveryID, Strategy: strategy}, nil
}
