package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
)

// Op names a backend operation for failure injection.
type Op string

const (
	OpFindCustomer   Op = "find customer"
	OpCreateCustomer Op = "create customer"
	OpListTickets    Op = "list tickets"
	OpCreateTicket   Op = "create ticket"
	OpAppendMessage  Op = "append message"
	OpUpdateTicket   Op = "update ticket"
)

type ticketRecord struct {
	ticket   domain.Ticket
	status   string
	messages []domain.Message
}

// Backend is an in-process ticketing backend. It is safe for concurrent
// use and is meant for tests and local development.
type Backend struct {
	mu        sync.Mutex
	nextID    int
	customers map[string]*domain.Customer
	byEmail   map[string]string
	tickets   map[string]*ticketRecord
	failures  map[Op]error
	latency   time.Duration
	now       func() time.Time
	calls     map[Op]int
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		nextID:    1000,
		customers: make(map[string]*domain.Customer),
		byEmail:   make(map[string]string),
		tickets:   make(map[string]*ticketRecord),
		failures:  make(map[Op]error),
		calls:     make(map[Op]int),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// SetLatency delays every call by d.
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// Fail makes every call of op return err until ClearFailures is called.
func (b *Backend) Fail(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

// ClearFailures removes all injected failures.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[Op]error)
}

// Calls returns how many times op was invoked.
func (b *Backend) Calls(op Op) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *Backend) enter(ctx context.Context, op Op) error {
	b.mu.Lock()
	latency := b.latency
	b.calls[op]++
	failure := b.failures[op]
	b.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ticketing.NewError(string(op), ticketing.KindUnavailable, 0, ctx.Err())
		}
	}
	if failure != nil {
		return failure
	}
	return ctx.Err()
}

func (b *Backend) newID() string {
	b.nextID++
	return strconv.Itoa(b.nextID)
}

// FindCustomerByEmail implements ticketing.Backend.
func (b *Backend) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	if err := b.enter(ctx, OpFindCustomer); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ticketing.NewError(string(OpFindCustomer), ticketing.KindNotFound, 0, nil)
	}
	customer := *b.customers[id]
	return &customer, nil
}

// CreateCustomer implements ticketing.Backend. Emails are unique.
func (b *Backend) CreateCustomer(ctx context.Context, input ticketing.CustomerInput) (*domain.Customer, error) {
	if err := b.enter(ctx, OpCreateCustomer); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToLower(input.Email)
	if _, exists := b.byEmail[key]; exists {
		return nil, ticketing.NewError(string(OpCreateCustomer), ticketing.KindRejected, 400, nil)
	}
	customer := &domain.Customer{
		ID:       b.newID(),
		Email:    input.Email,
		Name:     input.Name,
		Phone:    input.Phone.String(),
		Channels: append([]domain.ContactChannel(nil), input.Channels...),
	}
	b.customers[customer.ID] = customer
	b.byEmail[key] = customer.ID
	out := *customer
	return &out, nil
}

// ListTickets implements ticketing.Backend, most recently updated first.
func (b *Backend) ListTickets(ctx context.Context, customerID string, limit int) ([]domain.Ticket, error) {
	if err := b.enter(ctx, OpListTickets); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]domain.Ticket, 0)
	for _, rec := range b.tickets {
		if rec.ticket.CustomerID == customerID {
			result = append(result, rec.snapshot())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return numericID(result[i].ID) > numericID(result[j].ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CreateTicket implements ticketing.Backend. A customer referenced only by
// email is created on the fly, as the real backend does.
func (b *Backend) CreateTicket(ctx context.Context, input ticketing.TicketInput) (*domain.Ticket, error) {
	if err := b.enter(ctx, OpCreateTicket); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	customerID, err := b.customerFor(input.Customer)
	if err != nil {
		return nil, err
	}
	now := b.now()
	rec := &ticketRecord{
		ticket: domain.Ticket{
			ID:         b.newID(),
			State:      domain.LifecycleOpen,
			Channel:    domain.ChannelSMS,
			CustomerID: customerID,
			Subject:    input.Subject,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		status: ticketing.StatusOpen,
	}
	b.tickets[rec.ticket.ID] = rec
	b.appendLocked(rec, input.Message, now)
	out := rec.snapshot()
	return &out, nil
}

// AppendMessage implements ticketing.Backend.
func (b *Backend) AppendMessage(ctx context.Context, ticketID string, input ticketing.MessageInput) (*domain.Message, error) {
	if err := b.enter(ctx, OpAppendMessage); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.tickets[ticketID]
	if !ok {
		return nil, ticketing.NewError(string(OpAppendMessage), ticketing.KindNotFound, 404, nil)
	}
	msg := b.appendLocked(rec, input, b.now())
	return &msg, nil
}

// UpdateTicket implements ticketing.Backend.
func (b *Backend) UpdateTicket(ctx context.Context, ticketID string, update ticketing.TicketUpdate) (*domain.Ticket, error) {
	if err := b.enter(ctx, OpUpdateTicket); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.tickets[ticketID]
	if !ok {
		return nil, ticketing.NewError(string(OpUpdateTicket), ticketing.KindNotFound, 404, nil)
	}
	now := b.now()
	if update.ClearTrashed {
		rec.ticket.TrashedAt = nil
	}
	if update.Status != nil {
		rec.status = *update.Status
		if rec.status == ticketing.StatusOpen {
			rec.ticket.ClosedAt = nil
		}
	}
	rec.ticket.UpdatedAt = now
	out := rec.snapshot()
	return &out, nil
}

// Trash soft-deletes a ticket the way an agent would.
func (b *Backend) Trash(ticketID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.tickets[ticketID]
	if !ok {
		return false
	}
	now := b.now()
	rec.ticket.TrashedAt = &now
	rec.ticket.UpdatedAt = now
	return true
}

// Close resolves a ticket the way an agent would.
func (b *Backend) Close(ticketID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.tickets[ticketID]
	if !ok {
		return false
	}
	now := b.now()
	rec.status = "closed"
	rec.ticket.ClosedAt = &now
	rec.ticket.UpdatedAt = now
	return true
}

// Delete removes a ticket entirely.
func (b *Backend) Delete(ticketID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tickets, ticketID)
}

// Ticket returns a snapshot of a ticket.
func (b *Backend) Ticket(ticketID string) (domain.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, false
	}
	return rec.snapshot(), true
}

// Messages returns the thread of a ticket in append order.
func (b *Backend) Messages(ticketID string) []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.tickets[ticketID]
	if !ok {
		return nil
	}
	return append([]domain.Message(nil), rec.messages...)
}

// TicketCount returns the number of stored tickets.
func (b *Backend) TicketCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tickets)
}

// CustomerCount returns the number of stored customers.
func (b *Backend) CustomerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.customers)
}

func (b *Backend) customerFor(ref ticketing.CustomerRef) (string, error) {
	if ref.ID != "" {
		if _, ok := b.customers[ref.ID]; !ok {
			return "", ticketing.NewError(string(OpCreateTicket), ticketing.KindRejected, 400, nil)
		}
		return ref.ID, nil
	}
	key := strings.ToLower(ref.Email)
	if id, ok := b.byEmail[key]; ok {
		return id, nil
	}
	if key == "" {
		return "", ticketing.NewError(string(OpCreateTicket), ticketing.KindRejected, 400, nil)
	}
	customer := &domain.Customer{ID: b.newID(), Email: ref.Email}
	b.customers[customer.ID] = customer
	b.byEmail[key] = customer.ID
	return customer.ID, nil
}

func (b *Backend) appendLocked(rec *ticketRecord, input ticketing.MessageInput, now time.Time) domain.Message {
	msg := domain.Message{
		ID:          b.newID(),
		TicketID:    rec.ticket.ID,
		Direction:   domain.DirectionInbound,
		Channel:     domain.ChannelSMS,
		Body:        input.Body,
		Source:      input.Source.String(),
		Destination: input.Destination.String(),
		CreatedAt:   now,
	}
	rec.messages = append(rec.messages, msg)
	rec.ticket.LastMessageAt = &now
	rec.ticket.UpdatedAt = now
	return msg
}

func (r *ticketRecord) snapshot() domain.Ticket {
	t := r.ticket
	t.State = domain.ClassifyLifecycle(r.status, t.TrashedAt)
	t.MessageCount = len(r.messages)
	return t
}

func numericID(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}

var _ ticketing.Backend = (*Backend)(nil)
