package dto

import (
	"bytes"
	"encoding/json"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/pkg/util/jsonutil"
)

// FlexibleAddress accepts an address given either as a bare string or as
// an object with an "address" field.
type FlexibleAddress string

func (f *FlexibleAddress) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleAddress(s)
	default:
		var obj struct {
			Address string `json:"address"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = FlexibleAddress(obj.Address)
	}
	return nil
}

// OutboundWebhookRequest is the ticketing backend's message notification.
type OutboundWebhookRequest struct {
	Ticket  *WebhookTicket  `json:"ticket"`
	Message *WebhookMessage `json:"message"`
}

// WebhookTicket payload.
type WebhookTicket struct {
	ID              jsonutil.FlexibleID `json:"id"`
	Channel         string              `json:"channel"`
	Customer        *WebhookCustomer    `json:"customer"`
	OriginalMessage *WebhookOriginal    `json:"original_message"`
	Messages        []WebhookMessage    `json:"messages"`
}

// WebhookOriginal is the first inbound message as recorded on the ticket.
type WebhookOriginal struct {
	From FlexibleAddress `json:"from"`
}

// WebhookCustomer payload.
type WebhookCustomer struct {
	ID       jsonutil.FlexibleID `json:"id"`
	Email    string              `json:"email"`
	Name     string              `json:"name"`
	Phone    string              `json:"phone"`
	Channels []WebhookChannel    `json:"channels"`
}

// WebhookChannel payload.
type WebhookChannel struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

// WebhookMessage payload.
type WebhookMessage struct {
	BodyText  string         `json:"body_text"`
	FromAgent bool           `json:"from_agent"`
	Channel   string         `json:"channel"`
	Source    *WebhookSource `json:"source"`
}

// WebhookSource payload.
type WebhookSource struct {
	From FlexibleAddress `json:"from"`
}

// ToDomain reduces the webhook to the fields used for relaying. A missing
// ticket or message yields a non-relayable event.
func (r OutboundWebhookRequest) ToDomain() domain.OutboundEvent {
	var event domain.OutboundEvent
	if r.Message != nil {
		event.Body = r.Message.BodyText
		event.FromAgent = r.Message.FromAgent
		event.MessageChannel = r.Message.Channel
	}
	if r.Ticket == nil {
		event.FromAgent = false
		return event
	}
	event.TicketID = string(r.Ticket.ID)
	event.TicketChannel = r.Ticket.Channel
	if c := r.Ticket.Customer; c != nil {
		event.Customer = domain.Customer{
			ID:    string(c.ID),
			Email: c.Email,
			Name:  c.Name,
			Phone: c.Phone,
		}
		for _, ch := range c.Channels {
			event.Customer.Channels = append(event.Customer.Channels, domain.ContactChannel{Type: ch.Type, Address: ch.Address})
		}
	}
	if r.Ticket.OriginalMessage != nil {
		event.OriginalFrom = string(r.Ticket.OriginalMessage.From)
	}
	if len(r.Ticket.Messages) > 0 && r.Ticket.Messages[0].Source != nil {
		event.FirstMessage = string(r.Ticket.Messages[0].Source.From)
	}
	return event
}

// RelayResponse is returned after a relay attempt.
type RelayResponse struct {
	Status      string `json:"status,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Success     bool   `json:"success,omitempty"`
	Destination string `json:"destination,omitempty"`
	DeliveryID  string `json:"deliveryId,omitempty"`
}
