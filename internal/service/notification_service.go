package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/config"
	"github.com/spec-kit/sms-ticket-bridge/internal/events"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	httpClient *http.Client
}

const defaultNotifyTimeout = 5 * time.Second

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventMessageAppended, n.handleCounted)
	n.dispatcher.Subscribe(events.EventTicketRestored, n.handleTicketRestored)
	n.dispatcher.Subscribe(events.EventRestorePartialFailure, n.handleRestorePartialFailure)
	n.dispatcher.Subscribe(events.EventSMSRelayed, n.handleCounted)
	n.dispatcher.Subscribe(events.EventSubscriptionChanged, n.handleSubscriptionChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.notifyWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketRestored(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Info("TicketRestored", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.notifyWebhook(ctx, event)
	return nil
}

// Partial restores need a human: the ticket is open again but the message
// that triggered the restore is not on it.
func (n *NotificationService) handleRestorePartialFailure(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Error("RestorePartialFailure",
		zap.String("ticket_id", event.TicketID),
		zap.String("phone", event.Phone),
		zap.Any("payload", event.Payload))
	n.notifyWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleSubscriptionChanged(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Info("SubscriptionChanged", zap.String("phone", event.Phone), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleCounted(_ context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Debug(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

// notifyWebhook POSTs the event as JSON. Failures are logged and counted,
// never returned, so a broken endpoint cannot fail the publishing request.
func (n *NotificationService) notifyWebhook(ctx context.Context, event events.Event) {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return
	}
	if err := n.postEvent(context.WithoutCancel(ctx), url, event); err != nil {
		n.metrics.RecordDegradation("notify_webhook")
		n.logger.Warn("notification webhook failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return
	}
	n.logger.Debug("notification webhook delivered",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) postEvent(ctx context.Context, url string, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
