package gorgias

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	User   string
	Pass   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	rec.User, rec.Pass, _ = r.BasicAuth()
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, Username: "agent@example.com", APIKey: "secret"}, srv.Client(), nil)
	return client, api
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestFindCustomerByEmail(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"id":42,"email":"sms-15551234567@rescuelink.com","channels":[{"type":"phone","address":"+15551234567"}]}]}`)
	})

	customer, err := client.FindCustomerByEmail(t.Context(), "sms-15551234567@rescuelink.com")
	require.NoError(t, err)
	assert.Equal(t, "42", customer.ID)
	require.Len(t, customer.Channels, 1)
	assert.Equal(t, "+15551234567", customer.Channels[0].Address)

	req := api.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/customers", req.Path)
	assert.Equal(t, "email=sms-15551234567%40rescuelink.com", req.Query)
	assert.Equal(t, "agent@example.com", req.User)
	assert.Equal(t, "secret", req.Pass)
}

func TestFindCustomerByEmailNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"id":7,"email":"someone-else@example.com"}]}`)
	})

	_, err := client.FindCustomerByEmail(t.Context(), "sms-1@rescuelink.com")
	require.ErrorIs(t, err, ticketing.ErrNotFound)
}

func TestListTicketsClassifiesLifecycle(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[
			{"id":1,"status":"open","channel":"sms","subject":"SMS from +1","customer":{"id":42},
			 "created_datetime":"2024-05-01T10:00:00.000000+00:00","updated_datetime":"2024-05-02T10:00:00+00:00",
			 "last_message_datetime":"2024-05-02T09:00:00","trashed_datetime":null},
			{"id":"2","status":"closed","channel":"sms","closed_datetime":"2024-05-03T10:00:00+00:00"},
			{"id":3,"status":"open","channel":"email","trashed_datetime":"2024-05-04T10:00:00+00:00"}
		]}`)
	})

	tickets, err := client.ListTickets(t.Context(), "42", 30)
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	assert.Equal(t, "1", tickets[0].ID)
	assert.Equal(t, domain.LifecycleOpen, tickets[0].State)
	assert.Equal(t, "42", tickets[0].CustomerID)
	require.NotNil(t, tickets[0].LastMessageAt)
	assert.Equal(t, 9, tickets[0].LastMessageAt.Hour())

	assert.Equal(t, "2", tickets[1].ID)
	assert.Equal(t, domain.LifecycleClosed, tickets[1].State)

	assert.Equal(t, domain.LifecycleTrashed, tickets[2].State)
	assert.False(t, tickets[2].IsSMS())

	req := api.last()
	assert.Equal(t, "/api/tickets", req.Path)
	assert.Contains(t, req.Query, "customer_id=42")
	assert.Contains(t, req.Query, "limit=30")
}

func TestCreateTicketPayload(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"id":555,"status":"open","channel":"sms","subject":"SMS from +15551234567","customer":{"id":42},"messages":[{"id":1}]}`)
	})

	ticket, err := client.CreateTicket(t.Context(), ticketing.TicketInput{
		Customer: ticketing.CustomerRef{ID: "42"},
		Subject:  "SMS from +15551234567",
		Message: ticketing.MessageInput{
			Body:        "Hello",
			Source:      "+15551234567",
			Destination: "+15617259387",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "555", ticket.ID)
	assert.Equal(t, 1, ticket.MessageCount)

	req := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "sms", req.Body["channel"])
	assert.Equal(t, "open", req.Body["status"])
	assert.Equal(t, false, req.Body["from_agent"])
	assert.Equal(t, map[string]any{"id": float64(42)}, req.Body["customer"])

	messages := req.Body["messages"].([]any)
	require.Len(t, messages, 1)
	first := messages[0].(map[string]any)
	assert.Equal(t, "Hello", first["body_text"])
	source := first["source"].(map[string]any)
	assert.Equal(t, "phone", source["type"])
	assert.Equal(t, "+15551234567", source["from"].(map[string]any)["address"])
}

func TestCreateTicketByEmailWhenIDUnknown(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"id":556,"status":"open","channel":"sms"}`)
	})

	_, err := client.CreateTicket(t.Context(), ticketing.TicketInput{
		Customer: ticketing.CustomerRef{Email: "sms-15551234567@rescuelink.com"},
		Message:  ticketing.MessageInput{Body: "Hi", Source: "+15551234567", Destination: "+15617259387"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"email": "sms-15551234567@rescuelink.com"}, api.last().Body["customer"])
}

func TestUpdateTicketSendsExplicitNull(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":9,"status":"open","channel":"sms","trashed_datetime":null}`)
	})

	ticket, err := client.UpdateTicket(t.Context(), "9", ticketing.RestoreUpdate())
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleOpen, ticket.State)

	req := api.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/tickets/9", req.Path)
	value, present := req.Body["trashed_datetime"]
	assert.True(t, present)
	assert.Nil(t, value)
	assert.Equal(t, "open", req.Body["status"])
}

func TestAppendMessageErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{name: "vanished ticket", status: http.StatusNotFound, target: ticketing.ErrNotFound},
		{name: "rejected write", status: http.StatusBadRequest, target: ticketing.ErrRejected},
		{name: "outage", status: http.StatusServiceUnavailable, target: ticketing.ErrUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, `{"error":"nope"}`)
			})
			_, err := client.AppendMessage(t.Context(), "9", ticketing.MessageInput{Body: "x", Source: "+1", Destination: "+2"})
			require.ErrorIs(t, err, tc.target)

			var backendErr *ticketing.Error
			require.ErrorAs(t, err, &backendErr)
			assert.Equal(t, tc.status, backendErr.StatusCode)
			assert.Equal(t, "append message", backendErr.Op)
		})
	}
}

func TestAppendMessageFillsDefaults(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"id":77}`)
	})

	msg, err := client.AppendMessage(t.Context(), "9", ticketing.MessageInput{
		Customer:    ticketing.CustomerRef{ID: "42"},
		Body:        "Second",
		Source:      "+15551234567",
		Destination: "+15617259387",
	})
	require.NoError(t, err)
	assert.Equal(t, "77", msg.ID)
	assert.Equal(t, "9", msg.TicketID)
	assert.Equal(t, "Second", msg.Body)
	assert.Equal(t, "+15551234567", msg.Source)
	assert.Equal(t, "/api/tickets/9/messages", api.last().Path)
	assert.Equal(t, map[string]any{"id": float64(42)}, api.last().Body["sender"])
}

func TestNetworkFailureIsUnavailable(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil, nil)
	_, err := client.ListTickets(t.Context(), "1", 10)
	require.ErrorIs(t, err, ticketing.ErrUnavailable)
}
