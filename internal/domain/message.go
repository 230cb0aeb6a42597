package domain

import "time"

// MessageDirection tells who authored a message.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "INBOUND"
	DirectionOutbound MessageDirection = "OUTBOUND"
)

// Message is one entry in a ticket thread. Messages are never modified.
type Message struct {
	ID          string
	TicketID    string
	Direction   MessageDirection
	Channel     string
	Body        string
	Source      string
	Destination string
	CreatedAt   time.Time
}

// InboundMessage is an SMS received from the gateway.
type InboundMessage struct {
	Body string
	From string
	To   string
}
