package twilio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/spec-kit/sms-ticket-bridge/internal/gateway"
)

type fakeMessages struct {
	mu     sync.Mutex
	params []*openapi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid, status := "SM123", "queued"
	return &openapi.ApiV2010Message{Sid: &sid, Status: &status}, nil
}

func TestSend(t *testing.T) {
	api := &fakeMessages{}
	client := newClient(api, Config{AccountSID: "AC1", AuthToken: "tok"}, nil)

	sid, err := client.Send(context.Background(), gateway.OutboundSMS{Body: "Hi there", From: "+15617259387", To: "+15551234567"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", sid)

	require.Len(t, api.params, 1)
	assert.Equal(t, "Hi there", *api.params[0].Body)
	assert.Equal(t, "+15617259387", *api.params[0].From)
	assert.Equal(t, "+15551234567", *api.params[0].To)
}

func TestSendAPIError(t *testing.T) {
	restErr := &twilioclient.TwilioRestError{Status: 400, Code: 21610, Message: "Attempt to send to unsubscribed recipient"}
	client := newClient(&fakeMessages{err: restErr}, Config{}, nil)

	_, err := client.Send(context.Background(), gateway.OutboundSMS{Body: "x", From: "+1", To: "+2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 21610")

	var got *twilioclient.TwilioRestError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 400, got.Status)
}

func TestSendTransportError(t *testing.T) {
	client := newClient(&fakeMessages{err: errors.New("dial tcp: refused")}, Config{}, nil)
	_, err := client.Send(context.Background(), gateway.OutboundSMS{Body: "x", From: "+1", To: "+2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestSendHonoursRateLimit(t *testing.T) {
	api := &fakeMessages{}
	client := newClient(api, Config{RatePerSecond: 0.1, Burst: 1}, nil)
	_, err := client.Send(context.Background(), gateway.OutboundSMS{Body: "first", From: "+1", To: "+2"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Send(ctx, gateway.OutboundSMS{Body: "second", From: "+1", To: "+2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Len(t, api.params, 1)
}

func TestNewClientUsesSDK(t *testing.T) {
	client := NewClient(Config{AccountSID: "AC1", AuthToken: "tok"}, nil)
	_, ok := client.api.(*openapi.ApiService)
	assert.True(t, ok)
}
