package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/events"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

// InboundContent is the text and addressing of an inbound SMS.
type InboundContent struct {
	Body        string
	Source      domain.PhoneNumber
	Destination domain.PhoneNumber
}

// ThreadResult describes what a mutation did.
type ThreadResult struct {
	Decision  domain.ThreadingDecision
	TicketID  string
	MessageID string
}

// TicketMutator performs the side effects chosen by Decide.
type TicketMutator struct {
	backend    ticketing.Backend
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// MutatorDependencies bundles collaborators for the mutator.
type MutatorDependencies struct {
	Backend    ticketing.Backend
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewTicketMutator constructs the mutator.
func NewTicketMutator(deps MutatorDependencies) *TicketMutator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketMutator{
		backend:    deps.Backend,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Apply executes decision. The switch covers every ThreadingDecision variant.
func (m *TicketMutator) Apply(ctx context.Context, decision domain.ThreadingDecision, identity domain.CustomerIdentity, content InboundContent) (*ThreadResult, error) {
	m.metrics.RecordDecision(string(decision.Kind()))
	switch d := decision.(type) {
	case domain.CreateNew:
		ticket, err := m.CreateTicket(ctx, identity, content)
		if err != nil {
			return nil, err
		}
		return &ThreadResult{Decision: d, TicketID: ticket.ID}, nil
	case domain.AppendToOpen:
		msg, err := m.AppendMessage(ctx, d.TicketID, identity, content)
		if err != nil {
			return nil, err
		}
		return &ThreadResult{Decision: d, TicketID: d.TicketID, MessageID: msg.ID}, nil
	case domain.RestoreAndAppend:
		msg, err := m.RestoreAndAppend(ctx, d.TicketID, identity, content)
		if err != nil {
			return nil, err
		}
		return &ThreadResult{Decision: d, TicketID: d.TicketID, MessageID: msg.ID}, nil
	default:
		return nil, apperrors.NewInternalError(fmt.Errorf("unknown threading decision %T", decision))
	}
}

// CreateTicket opens a new SMS ticket holding the first message.
func (m *TicketMutator) CreateTicket(ctx context.Context, identity domain.CustomerIdentity, content InboundContent) (*domain.Ticket, error) {
	ref := customerRef(identity)
	ticket, err := m.backend.CreateTicket(ctx, ticketing.TicketInput{
		Customer: ref,
		Subject:  domain.TicketSubject(identity.Phone),
		Message:  messageInput(ref, content),
	})
	if err != nil {
		if ticketing.IsUnavailable(err) {
			return nil, apperrors.NewBackendUnavailable("create ticket", err)
		}
		return nil, apperrors.NewCreateFailed(identity.Phone.String(), err)
	}

	m.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("phone", identity.Phone.String()),
		zap.Bool("degraded_identity", identity.Degraded))
	m.publish(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, identity.Phone, events.TicketCreatedPayload{
		CustomerID: ticket.CustomerID,
		Subject:    ticket.Subject,
	}))
	return ticket, nil
}

// AppendMessage adds an inbound message to an existing ticket. A vanished
// ticket is reported, never replaced by a new one.
func (m *TicketMutator) AppendMessage(ctx context.Context, ticketID string, identity domain.CustomerIdentity, content InboundContent) (*domain.Message, error) {
	msg, err := m.append(ctx, ticketID, identity, content)
	if err != nil {
		return nil, apperrors.NewAppendFailed(ticketID, err)
	}
	m.publishAppended(ctx, ticketID, identity, msg, domain.DecisionAppendToOpen)
	return msg, nil
}

// RestoreAndAppend clears the trash marker, reopens the ticket and then
// appends the message. When the append fails after a successful restore,
// the ticket stays restored and the failure is reported and published.
func (m *TicketMutator) RestoreAndAppend(ctx context.Context, ticketID string, identity domain.CustomerIdentity, content InboundContent) (*domain.Message, error) {
	restored, err := m.backend.UpdateTicket(ctx, ticketID, ticketing.RestoreUpdate())
	if err != nil {
		return nil, apperrors.NewRestoreFailed(ticketID, err)
	}
	m.logger.Info("ticket restored",
		zap.String("ticket_id", ticketID),
		zap.String("state", string(restored.State)))
	m.publish(ctx, events.NewEvent(events.EventTicketRestored, ticketID, identity.Phone, events.TicketRestoredPayload{
		PreviousState: domain.LifecycleTrashed,
	}))

	msg, err := m.append(ctx, ticketID, identity, content)
	if err != nil {
		m.logger.Error("restored ticket did not receive message",
			zap.String("code", apperrors.CodePartialRestoreFailure),
			zap.String("ticket_id", ticketID),
			zap.String("phone", identity.Phone.String()),
			zap.Error(err))
		m.publish(ctx, events.NewEvent(events.EventRestorePartialFailure, ticketID, identity.Phone, events.RestorePartialFailurePayload{
			Error: err.Error(),
		}))
		return nil, apperrors.NewPartialRestoreFailure(ticketID, err)
	}
	m.publishAppended(ctx, ticketID, identity, msg, domain.DecisionRestoreAndAppend)
	return msg, nil
}

func (m *TicketMutator) append(ctx context.Context, ticketID string, identity domain.CustomerIdentity, content InboundContent) (*domain.Message, error) {
	return m.backend.AppendMessage(ctx, ticketID, messageInput(customerRef(identity), content))
}

func (m *TicketMutator) publishAppended(ctx context.Context, ticketID string, identity domain.CustomerIdentity, msg *domain.Message, kind domain.DecisionKind) {
	m.logger.Info("message appended",
		zap.String("ticket_id", ticketID),
		zap.String("message_id", msg.ID),
		zap.String("decision", string(kind)))
	m.publish(ctx, events.NewEvent(events.EventMessageAppended, ticketID, identity.Phone, events.MessageAppendedPayload{
		MessageID:   msg.ID,
		Decision:    kind,
		BodyPreview: events.Preview(msg.Body),
	}))
}

func (m *TicketMutator) publish(ctx context.Context, event events.Event) {
	publish(ctx, m.dispatcher, m.logger, event)
}

func customerRef(identity domain.CustomerIdentity) ticketing.CustomerRef {
	if identity.HasExternalID() {
		return ticketing.CustomerRef{ID: identity.ExternalID, Email: identity.Email}
	}
	return ticketing.CustomerRef{Email: identity.Email}
}

func messageInput(ref ticketing.CustomerRef, content InboundContent) ticketing.MessageInput {
	return ticketing.MessageInput{
		Customer:    ref,
		Body:        content.Body,
		Source:      content.Source,
		Destination: content.Destination,
	}
}
