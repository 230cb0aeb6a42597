package gorgias

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
)

const (
	viaAPI          = "api"
	sourceTypePhone = "phone"
	maxErrorBody    = 2048
)

// Config holds the REST connection values.
type Config struct {
	BaseURL  string
	Username string
	APIKey   string
	Timeout  time.Duration
}

// Client implements ticketing.Backend over the Gorgias REST API.
type Client struct {
	baseURL  string
	username string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		http:     httpClient,
		logger:   logger,
	}
}

// BaseURLForDomain returns the API root for a Gorgias account subdomain.
func BaseURLForDomain(domainName string) string {
	return fmt.Sprintf("https://%s.gorgias.com", domainName)
}

// FindCustomerByEmail implements ticketing.Backend.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const op = "find customer"
	query := url.Values{}
	query.Set("email", email)
	var result customerList
	if err := c.do(ctx, op, http.MethodGet, "/api/customers?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	for _, candidate := range result.Data {
		if strings.EqualFold(candidate.Email, email) {
			return candidate.toDomain(), nil
		}
	}
	return nil, ticketing.NewError(op, ticketing.KindNotFound, 0, nil)
}

// CreateCustomer implements ticketing.Backend.
func (c *Client) CreateCustomer(ctx context.Context, input ticketing.CustomerInput) (*domain.Customer, error) {
	req := createCustomerRequest{
		Email: input.Email,
		Name:  input.Name,
		Phone: input.Phone.String(),
	}
	for _, ch := range input.Channels {
		req.Channels = append(req.Channels, channelPayload{Type: ch.Type, Address: ch.Address})
	}
	var created customerPayload
	if err := c.do(ctx, "create customer", http.MethodPost, "/api/customers", req, &created); err != nil {
		return nil, err
	}
	return created.toDomain(), nil
}

// ListTickets implements ticketing.Backend, most recently updated first.
func (c *Client) ListTickets(ctx context.Context, customerID string, limit int) ([]domain.Ticket, error) {
	query := url.Values{}
	query.Set("customer_id", customerID)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	query.Set("order_by", "updated_datetime:desc")
	var result ticketList
	if err := c.do(ctx, "list tickets", http.MethodGet, "/api/tickets?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(result.Data))
	for i := range result.Data {
		tickets = append(tickets, result.Data[i].toDomain())
	}
	return tickets, nil
}

// CreateTicket implements ticketing.Backend.
func (c *Client) CreateTicket(ctx context.Context, input ticketing.TicketInput) (*domain.Ticket, error) {
	msg := newMessageRequest(input.Message)
	msg.Sender = nil
	req := createTicketRequest{
		Customer:  newCustomerRef(input.Customer),
		Messages:  []messageRequest{msg},
		Channel:   domain.ChannelSMS,
		FromAgent: false,
		Status:    ticketing.StatusOpen,
		Via:       viaAPI,
		Subject:   input.Subject,
	}
	var created ticketPayload
	if err := c.do(ctx, "create ticket", http.MethodPost, "/api/tickets", req, &created); err != nil {
		return nil, err
	}
	ticket := created.toDomain()
	return &ticket, nil
}

// AppendMessage implements ticketing.Backend.
func (c *Client) AppendMessage(ctx context.Context, ticketID string, input ticketing.MessageInput) (*domain.Message, error) {
	path := "/api/tickets/" + url.PathEscape(ticketID) + "/messages"
	var created messagePayload
	if err := c.do(ctx, "append message", http.MethodPost, path, newMessageRequest(input), &created); err != nil {
		return nil, err
	}
	msg := created.toDomain()
	if msg.TicketID == "" {
		msg.TicketID = ticketID
	}
	if msg.Body == "" {
		msg.Body = input.Body
	}
	if msg.Source == "" {
		msg.Source = input.Source.String()
		msg.Destination = input.Destination.String()
	}
	return &msg, nil
}

// UpdateTicket implements ticketing.Backend. ClearTrashed sends an
// explicit null trash timestamp.
func (c *Client) UpdateTicket(ctx context.Context, ticketID string, update ticketing.TicketUpdate) (*domain.Ticket, error) {
	body := map[string]any{}
	if update.ClearTrashed {
		body["trashed_datetime"] = nil
	}
	if update.Status != nil {
		body["status"] = *update.Status
	}
	var updated ticketPayload
	if err := c.do(ctx, "update ticket", http.MethodPut, "/api/tickets/"+url.PathEscape(ticketID), body, &updated); err != nil {
		return nil, err
	}
	ticket := updated.toDomain()
	return &ticket, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return ticketing.NewError(op, ticketing.KindRejected, 0, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return ticketing.NewError(op, ticketing.KindRejected, 0, err)
	}
	req.SetBasicAuth(c.username, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return ticketing.NewError(op, ticketing.KindUnavailable, 0, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("gorgias request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return ticketing.NewError(op, ticketing.KindForStatus(resp.StatusCode), resp.StatusCode,
			errors.New(strings.TrimSpace(string(snippet))))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ticketing.NewError(op, ticketing.KindUnavailable, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func newCustomerRef(ref ticketing.CustomerRef) customerRef {
	if id := parseNumericID(ref.ID); id != 0 {
		return customerRef{ID: id}
	}
	return customerRef{Email: ref.Email}
}

func newMessageRequest(input ticketing.MessageInput) messageRequest {
	sender := newCustomerRef(input.Customer)
	return messageRequest{
		Source: sourcePayload{
			Type: sourceTypePhone,
			From: addressPayload{Address: input.Source.String()},
			To:   []addressPayload{{Address: input.Destination.String()}},
		},
		BodyText:  input.Body,
		Channel:   domain.ChannelSMS,
		FromAgent: false,
		Via:       viaAPI,
		Sender:    &sender,
	}
}

func (p customerPayload) toDomain() *domain.Customer {
	customer := &domain.Customer{
		ID:    string(p.ID),
		Email: p.Email,
		Name:  p.Name,
		Phone: p.Phone,
	}
	for _, ch := range p.Channels {
		customer.Channels = append(customer.Channels, domain.ContactChannel{Type: ch.Type, Address: ch.Address})
	}
	return customer
}

func (p ticketPayload) toDomain() domain.Ticket {
	ticket := domain.Ticket{
		ID:            string(p.ID),
		Channel:       p.Channel,
		Subject:       p.Subject,
		CreatedAt:     p.CreatedDatetime.Time,
		UpdatedAt:     p.UpdatedDatetime.Time,
		LastMessageAt: p.LastMessageDatetime.ptr(),
		ClosedAt:      p.ClosedDatetime.ptr(),
		TrashedAt:     p.TrashedDatetime.ptr(),
		MessageCount:  p.MessagesCount,
	}
	if p.Customer != nil {
		ticket.CustomerID = string(p.Customer.ID)
	}
	if ticket.MessageCount == 0 {
		ticket.MessageCount = len(p.Messages)
	}
	ticket.State = domain.ClassifyLifecycle(p.Status, ticket.TrashedAt)
	return ticket
}

func (p messagePayload) toDomain() domain.Message {
	msg := domain.Message{
		ID:        string(p.ID),
		TicketID:  string(p.TicketID),
		Channel:   p.Channel,
		Body:      p.BodyText,
		Direction: domain.DirectionInbound,
		CreatedAt: p.CreatedDatetime.Time,
	}
	if p.FromAgent {
		msg.Direction = domain.DirectionOutbound
	}
	if p.Source != nil {
		msg.Source = p.Source.From.Address
		if len(p.Source.To) > 0 {
			msg.Destination = p.Source.To[0].Address
		}
	}
	return msg
}

var _ ticketing.Backend = (*Client)(nil)
