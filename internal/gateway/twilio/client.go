package twilio

import (
	"context"
	"errors"
	"fmt"

	twiliosdk "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/sms-ticket-bridge/internal/gateway"
)

// Config holds REST credentials and send throttling.
type Config struct {
	AccountSID    string
	AuthToken     string
	RatePerSecond float64
	Burst         int
}

// messageCreator is the slice of the Messages resource the client uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Client sends SMS through the Twilio Messages resource.
type Client struct {
	api     messageCreator
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a client on the Twilio SDK.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	rest := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newClient(rest.Api, cfg, logger)
}

func newClient(api messageCreator, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Send implements gateway.Sender. It waits for the send rate limiter
// before calling the API.
func (c *Client) Send(ctx context.Context, msg gateway.OutboundSMS) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("twilio rate limit: %w", err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetBody(msg.Body)
	params.SetFrom(msg.From.String())
	params.SetTo(msg.To.String())

	resource, err := c.api.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return "", fmt.Errorf("twilio send: status %d code %d: %s: %w", restErr.Status, restErr.Code, restErr.Message, err)
		}
		return "", fmt.Errorf("twilio send: %w", err)
	}
	if resource == nil || resource.Sid == nil {
		return "", errors.New("twilio send: response without message sid")
	}

	status := ""
	if resource.Status != nil {
		status = *resource.Status
	}
	c.logger.Debug("twilio message queued",
		zap.String("sid", *resource.Sid),
		zap.String("status", status),
		zap.String("to", msg.To.String()))
	return *resource.Sid, nil
}

var _ gateway.Sender = (*Client)(nil)
