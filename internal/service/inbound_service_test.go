package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/lease"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing/memory"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

const gatewayNumber = "+15617259387"

func inbound(body string) domain.InboundMessage {
	return domain.InboundMessage{Body: body, From: "+15551234567", To: gatewayNumber}
}

func TestScenarioCreateAppendRestore(t *testing.T) {
	h := newHarness(t, lease.NewMemoryLocker())
	ctx := context.Background()

	// first contact opens a ticket
	first := h.inbound.HandleMessage(ctx, inbound("Hello"))
	require.NoError(t, first.Err)
	assert.Equal(t, testReplies.AutoReply, first.Message)
	require.NotNil(t, first.Result)
	assert.Equal(t, domain.CreateNew{}, first.Result.Decision)

	ticketID := first.Result.TicketID
	ticket, ok := h.backend.Ticket(ticketID)
	require.True(t, ok)
	assert.Contains(t, ticket.Subject, "+15551234567")
	assert.Equal(t, domain.ChannelSMS, ticket.Channel)
	msgs := h.backend.Messages(ticketID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Body)
	assert.Equal(t, domain.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, "+15551234567", msgs[0].Source)
	assert.Equal(t, gatewayNumber, msgs[0].Destination)

	// still open: appended to the same ticket
	second := h.inbound.HandleMessage(ctx, inbound("Are you there?"))
	require.NoError(t, second.Err)
	assert.Equal(t, domain.AppendToOpen{TicketID: ticketID}, second.Result.Decision)
	assert.Equal(t, 1, h.backend.TicketCount())
	assert.Len(t, h.backend.Messages(ticketID), 2)

	// trashed by an agent: restored with history kept
	require.True(t, h.backend.Trash(ticketID))
	third := h.inbound.HandleMessage(ctx, inbound("Hello again"))
	require.NoError(t, third.Err)
	assert.Equal(t, domain.RestoreAndAppend{TicketID: ticketID}, third.Result.Decision)

	restored, _ := h.backend.Ticket(ticketID)
	assert.Equal(t, domain.LifecycleOpen, restored.State)
	assert.Nil(t, restored.TrashedAt)
	msgs = h.backend.Messages(ticketID)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"Hello", "Are you there?", "Hello again"}, []string{msgs[0].Body, msgs[1].Body, msgs[2].Body})
	assert.Equal(t, 1, h.backend.TicketCount())
}

func TestClosedTicketIsNotReopened(t *testing.T) {
	h := newHarness(t, lease.NewMemoryLocker())
	ctx := context.Background()

	first := h.inbound.HandleMessage(ctx, inbound("Hello"))
	require.NoError(t, first.Err)
	require.True(t, h.backend.Close(first.Result.TicketID))

	next := h.inbound.HandleMessage(ctx, inbound("New question"))
	require.NoError(t, next.Err)
	assert.Equal(t, domain.CreateNew{}, next.Result.Decision)
	assert.NotEqual(t, first.Result.TicketID, next.Result.TicketID)
	assert.Equal(t, 2, h.backend.TicketCount())
	closed, _ := h.backend.Ticket(first.Result.TicketID)
	assert.Equal(t, domain.LifecycleClosed, closed.State)
}

func TestSamePhoneInDifferentFormatsThreadsTogether(t *testing.T) {
	h := newHarness(t, lease.NewMemoryLocker())
	ctx := context.Background()

	a := h.inbound.HandleMessage(ctx, domain.InboundMessage{Body: "one", From: "+1 (555) 123-4567", To: gatewayNumber})
	b := h.inbound.HandleMessage(ctx, domain.InboundMessage{Body: "two", From: "15551234567", To: gatewayNumber})
	require.NoError(t, a.Err)
	require.NoError(t, b.Err)
	assert.Equal(t, a.Result.TicketID, b.Result.TicketID)
	assert.Equal(t, 1, h.backend.CustomerCount())
}

func TestKeywords(t *testing.T) {
	ctx := context.Background()

	t.Run("stop opts out without a ticket", func(t *testing.T) {
		h := newHarness(t, nil)
		for _, body := range []string{"STOP", "  unsubscribe "} {
			reply := h.inbound.HandleMessage(ctx, inbound(body))
			assert.Equal(t, testReplies.OptOut, reply.Message)
			assert.Equal(t, KeywordStop, reply.Keyword)
		}
		optedOut, err := h.subscriptions.IsOptedOut(ctx, testPhone)
		require.NoError(t, err)
		assert.True(t, optedOut)
		assert.Equal(t, 0, h.backend.TicketCount())
	})

	t.Run("start opts back in", func(t *testing.T) {
		h := newHarness(t, nil)
		h.inbound.HandleMessage(ctx, inbound("stop"))
		reply := h.inbound.HandleMessage(ctx, inbound("Subscribe"))
		assert.Equal(t, testReplies.OptIn, reply.Message)
		optedOut, err := h.subscriptions.IsOptedOut(ctx, testPhone)
		require.NoError(t, err)
		assert.False(t, optedOut)
	})

	t.Run("help threads a fixed text", func(t *testing.T) {
		h := newHarness(t, nil)
		reply := h.inbound.HandleMessage(ctx, inbound(" Help"))
		require.NoError(t, reply.Err)
		assert.Equal(t, testReplies.Help, reply.Message)
		require.NotNil(t, reply.Result)
		msgs := h.backend.Messages(reply.Result.TicketID)
		require.Len(t, msgs, 1)
		assert.Equal(t, "Customer requested help via SMS", msgs[0].Body)
	})

	t.Run("help without ticket", func(t *testing.T) {
		h := newHarness(t, nil)
		h.inbound.replies.HelpCreatesTicket = false
		reply := h.inbound.HandleMessage(ctx, inbound("help"))
		assert.Equal(t, testReplies.Help, reply.Message)
		assert.Equal(t, 0, h.backend.TicketCount())
	})

	t.Run("keyword inside a sentence is a message", func(t *testing.T) {
		h := newHarness(t, nil)
		reply := h.inbound.HandleMessage(ctx, inbound("please stop calling"))
		assert.Equal(t, KeywordNone, reply.Keyword)
		assert.Equal(t, testReplies.AutoReply, reply.Message)
		assert.Equal(t, 1, h.backend.TicketCount())
	})
}

func TestFallbackReply(t *testing.T) {
	ctx := context.Background()

	t.Run("ticket creation fails", func(t *testing.T) {
		h := newHarness(t, nil)
		h.backend.Fail(memory.OpCreateTicket, unavailable(memory.OpCreateTicket))
		reply := h.inbound.HandleMessage(ctx, inbound("Hello"))
		assert.Equal(t, testReplies.Fallback, reply.Message)
		assert.True(t, apperrors.HasCode(reply.Err, apperrors.CodeBackendUnavailable))
	})

	t.Run("invalid sender", func(t *testing.T) {
		h := newHarness(t, nil)
		reply := h.inbound.HandleMessage(ctx, domain.InboundMessage{Body: "hi", From: "anonymous"})
		assert.Equal(t, testReplies.Fallback, reply.Message)
		assert.True(t, apperrors.HasCode(reply.Err, apperrors.CodeValidationFailed))
		assert.Equal(t, 0, h.backend.Calls(memory.OpFindCustomer))
	})
}

func TestDegradedIdentityStillCreatesTicket(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.Fail(memory.OpFindCustomer, unavailable(memory.OpFindCustomer))

	reply := h.inbound.HandleMessage(context.Background(), inbound("Hello"))
	require.NoError(t, reply.Err)
	assert.Equal(t, testReplies.AutoReply, reply.Message)
	assert.Equal(t, domain.CreateNew{}, reply.Result.Decision)
	assert.Equal(t, 1, h.backend.TicketCount())
	assert.Equal(t, 0, h.backend.Calls(memory.OpListTickets))
}

func TestThreadHoldsPhoneLease(t *testing.T) {
	locker := &recordingLocker{inner: lease.NewMemoryLocker()}
	h := newHarness(t, locker)

	reply := h.inbound.HandleMessage(context.Background(), inbound("Hello"))
	require.NoError(t, reply.Err)
	assert.Equal(t, []string{"sms-thread:+15551234567"}, locker.keys)
	assert.Equal(t, 1, locker.released)

	h.backend.Fail(memory.OpCreateTicket, rejected(memory.OpCreateTicket))
	h.backend.Delete(reply.Result.TicketID)
	reply = h.inbound.HandleMessage(context.Background(), inbound("Again"))
	require.Error(t, reply.Err)
	assert.Equal(t, 2, locker.released, "lease released on failure")
}

func TestLeaseStoreDownFailsOpen(t *testing.T) {
	locker := &recordingLocker{err: fmt.Errorf("%w: connection refused", lease.ErrStoreUnavailable)}
	h := newHarness(t, locker)

	reply := h.inbound.HandleMessage(context.Background(), inbound("Hello"))
	require.NoError(t, reply.Err)
	assert.Equal(t, testReplies.AutoReply, reply.Message)
	assert.Equal(t, 1, h.backend.TicketCount())
}

func TestLeaseHeldByPeerIsNotBypassed(t *testing.T) {
	locker := lease.NewMemoryLocker()
	release, err := locker.Acquire(context.Background(), lease.ThreadKey("+15551234567"), time.Second)
	require.NoError(t, err)
	defer release()

	h := newHarness(t, nil)
	h.withLeaseBounds(locker, time.Second, 20*time.Millisecond)

	reply := h.inbound.HandleMessage(context.Background(), inbound("Hello"))
	assert.Equal(t, testReplies.Fallback, reply.Message)
	assert.True(t, apperrors.HasCode(reply.Err, apperrors.CodeLeaseUnavailable))
	assert.Equal(t, 0, h.backend.TicketCount())
	assert.Equal(t, 0, h.backend.Calls(memory.OpFindCustomer))
}

func TestShortLeaseWaitNeverDuplicatesFirstContact(t *testing.T) {
	h := newHarness(t, nil)
	h.withLeaseBounds(lease.NewMemoryLocker(), time.Second, 40*time.Millisecond)
	h.backend.SetLatency(30 * time.Millisecond)

	var g errgroup.Group
	replies := make([]InboundReply, 2)
	for i := range replies {
		g.Go(func() error {
			replies[i] = h.inbound.HandleMessage(context.Background(), inbound(fmt.Sprintf("first contact %d", i)))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, h.backend.TicketCount())
	assert.Equal(t, 1, h.backend.CustomerCount())
	busy := 0
	for _, r := range replies {
		if r.Err != nil {
			assert.True(t, apperrors.HasCode(r.Err, apperrors.CodeLeaseUnavailable))
			assert.Equal(t, testReplies.Fallback, r.Message)
			busy++
		}
	}
	assert.Equal(t, 1, busy)
}

func TestCanceledRequestDoesNotThread(t *testing.T) {
	locker := lease.NewMemoryLocker()
	release, err := locker.Acquire(context.Background(), lease.ThreadKey("+15551234567"), defaultLeaseTTL)
	require.NoError(t, err)
	defer release()

	h := newHarness(t, locker)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply := h.inbound.HandleMessage(ctx, inbound("Hello"))
	assert.Equal(t, testReplies.Fallback, reply.Message)
	assert.ErrorIs(t, reply.Err, context.Canceled)
	assert.Equal(t, 0, h.backend.TicketCount())
}

func TestConcurrentFirstMessagesCreateOneTicket(t *testing.T) {
	h := newHarness(t, lease.NewMemoryLocker())
	h.backend.SetLatency(15 * time.Millisecond) // widens the race window

	const senders = 5
	var g errgroup.Group
	replies := make([]InboundReply, senders)
	for i := 0; i < senders; i++ {
		g.Go(func() error {
			replies[i] = h.inbound.HandleMessage(context.Background(), inbound(fmt.Sprintf("message %d", i)))
			return replies[i].Err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, h.backend.TicketCount())
	assert.Equal(t, 1, h.backend.CustomerCount())
	ticketID := replies[0].Result.TicketID
	for _, r := range replies {
		assert.Equal(t, ticketID, r.Result.TicketID)
	}
	assert.Len(t, h.backend.Messages(ticketID), senders)
}
