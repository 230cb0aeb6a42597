package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "failing")
		return errors.New("handler broke")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "ok:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventSMSRelayed, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketCreated, "1001", domain.PhoneNumber("+1555"), TicketCreatedPayload{}))
	require.Error(t, err)
	assert.Equal(t, []string{"failing", "ok:1001"}, calls)
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(EventMessageAppended, "7", "+1555", nil)
	b := NewEvent(EventMessageAppended, "7", "+1555", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "+1555", a.Phone)
	assert.False(t, a.Timestamp.IsZero())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'é'
	}
	assert.Len(t, []rune(Preview(string(long))), 140)
}
