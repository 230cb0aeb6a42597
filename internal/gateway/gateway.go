package gateway

import (
	"context"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
)

// OutboundSMS is a message handed to the gateway for delivery.
type OutboundSMS struct {
	Body string
	From domain.PhoneNumber
	To   domain.PhoneNumber
}

// Sender delivers SMS through the message gateway and returns the
// gateway delivery id.
type Sender interface {
	Send(ctx context.Context, msg OutboundSMS) (string, error)
}
