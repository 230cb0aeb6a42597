package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventMessageAppended       EventType = "message_appended"
	EventTicketRestored        EventType = "ticket_restored"
	EventRestorePartialFailure EventType = "restore_partial_failure"
	EventSMSRelayed            EventType = "sms_relayed"
	EventSubscriptionChanged   EventType = "subscription_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID string, phone domain.PhoneNumber, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Phone:     phone.String(),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string `json:"customer_id,omitempty"`
	Subject    string `json:"subject"`
	MessageID  string `json:"message_id,omitempty"`
}

// MessageAppendedPayload payload.
type MessageAppendedPayload struct {
	MessageID   string              `json:"message_id"`
	Decision    domain.DecisionKind `json:"decision"`
	BodyPreview string              `json:"body_preview"`
}

// TicketRestoredPayload payload.
type TicketRestoredPayload struct {
	PreviousState domain.LifecycleState `json:"previous_state"`
}

// RestorePartialFailurePayload payload.
type RestorePartialFailurePayload struct {
	Error string `json:"error"`
}

// SMSRelayedPayload payload.
type SMSRelayedPayload struct {
	DeliveryID string `json:"delivery_id"`
	Strategy   string `json:"strategy"`
}

// SubscriptionChangedPayload payload.
type SubscriptionChangedPayload struct {
	Status domain.SubscriptionStatus `json:"status"`
}

// Preview truncates a message body for event payloads.
func Preview(body string) string {
	const max = 140
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max])
}
