package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sms-ticket-bridge/internal/config"
	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/events"
	"github.com/spec-kit/sms-ticket-bridge/internal/gateway"
	"github.com/spec-kit/sms-ticket-bridge/internal/lease"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
	"github.com/spec-kit/sms-ticket-bridge/internal/repository"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing/memory"
)

var testReplies = config.RepliesConfig{
	OptOut:            "opted out",
	OptIn:             "opted in",
	Help:              "help text",
	HelpTicketBody:    "Customer requested help via SMS",
	AutoReply:         "auto reply",
	Fallback:          "fallback reply",
	HelpCreatesTicket: true,
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newEventRecorder(d events.Dispatcher) *eventRecorder {
	r := &eventRecorder{}
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventMessageAppended,
		events.EventTicketRestored,
		events.EventRestorePartialFailure,
		events.EventSMSRelayed,
		events.EventSubscriptionChanged,
	} {
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
			return nil
		})
	}
	return r
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	backend       *memory.Backend
	dispatcher    events.Dispatcher
	recorder      *eventRecorder
	subscriptions *SubscriptionService
	identities    *IdentityResolver
	locator       *TicketLocator
	mutator       *TicketMutator
	inbound       *InboundService
}

func newHarness(t *testing.T, locker lease.Locker) *harness {
	t.Helper()
	backend := memory.NewBackend()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	h := &harness{
		backend:    backend,
		dispatcher: dispatcher,
		recorder:   newEventRecorder(dispatcher),
	}
	h.subscriptions = NewSubscriptionService(repository.NewMemorySubscriptionRepository(), dispatcher, nil)
	h.identities = NewIdentityResolver(IdentityDependencies{Backend: backend, Scheme: domain.DefaultIdentityScheme(), Metrics: metrics})
	h.locator = NewTicketLocator(LocatorDependencies{Backend: backend, Metrics: metrics})
	h.mutator = NewTicketMutator(MutatorDependencies{Backend: backend, Dispatcher: dispatcher, Metrics: metrics})
	h.inbound = NewInboundService(InboundDependencies{
		Identities:    h.identities,
		Locator:       h.locator,
		Mutator:       h.mutator,
		Subscriptions: h.subscriptions,
		Locker:        locker,
		LeaseTTL:      5 * time.Second,
		LeaseWait:     5 * time.Second,
		Replies:       testReplies,
		Metrics:       metrics,
	})
	return h
}

// withLeaseBounds rebuilds the inbound service with the given lease ttl and wait.
func (h *harness) withLeaseBounds(locker lease.Locker, ttl, wait time.Duration) {
	h.inbound = NewInboundService(InboundDependencies{
		Identities:    h.identities,
		Locator:       h.locator,
		Mutator:       h.mutator,
		Subscriptions: h.subscriptions,
		Locker:        locker,
		LeaseTTL:      ttl,
		LeaseWait:     wait,
		Replies:       testReplies,
	})
}

// seedTicket creates a customer for phone and one ticket holding body.
func (h *harness) seedTicket(t *testing.T, phone domain.PhoneNumber, body string) (domain.CustomerIdentity, *domain.Ticket) {
	t.Helper()
	identity := h.identities.ResolveOrCreate(context.Background(), phone)
	require.True(t, identity.HasExternalID())
	ticket, err := h.mutator.CreateTicket(context.Background(), identity, InboundContent{Body: body, Source: phone, Destination: "+15617259387"})
	require.NoError(t, err)
	return identity, ticket
}

func unavailable(op memory.Op) error {
	return ticketing.NewError(string(op), ticketing.KindUnavailable, 503, errors.New("upstream down"))
}

func rejected(op memory.Op) error {
	return ticketing.NewError(string(op), ticketing.KindRejected, 422, errors.New("invalid"))
}

type recordingLocker struct {
	mu       sync.Mutex
	inner    lease.Locker
	err      error
	keys     []string
	released int
}

func (l *recordingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	release, err := l.inner.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
		release()
	}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []gateway.OutboundSMS
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg gateway.OutboundSMS) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "SM" + string(rune('a'+len(s.sent)-1)), nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
