package ticketing

import (
	"context"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
)

// Backend is the capability set the threading engine needs from the
// ticketing system of record.
type Backend interface {
	FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, input CustomerInput) (*domain.Customer, error)
	ListTickets(ctx context.Context, customerID string, limit int) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, input TicketInput) (*domain.Ticket, error)
	AppendMessage(ctx context.Context, ticketID string, input MessageInput) (*domain.Message, error)
	UpdateTicket(ctx context.Context, ticketID string, update TicketUpdate) (*domain.Ticket, error)
}

// CustomerInput describes a customer to create.
type CustomerInput struct {
	Email    string
	Name     string
	Phone    domain.PhoneNumber
	Channels []domain.ContactChannel
}

// CustomerRef points at a customer by backend id or, when the id is
// unknown, by email.
type CustomerRef struct {
	ID    string
	Email string
}

// MessageInput describes an inbound SMS message.
type MessageInput struct {
	Customer    CustomerRef
	Body        string
	Source      domain.PhoneNumber
	Destination domain.PhoneNumber
}

// TicketInput describes a ticket created together with its first message.
type TicketInput struct {
	Customer CustomerRef
	Subject  string
	Message  MessageInput
}

// TicketUpdate is a partial ticket update.
type TicketUpdate struct {
	ClearTrashed bool
	Status       *string
}

// StatusOpen is the backend status value of an open ticket.
const StatusOpen = "open"

// RestoreUpdate clears the trash marker and reopens the ticket.
func RestoreUpdate() TicketUpdate {
	status := StatusOpen
	return TicketUpdate{ClearTrashed: true, Status: &status}
}
