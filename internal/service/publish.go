package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/events"
)

// publish delivers event and logs handler failures. The operation that
// produced the event has already happened and is never rolled back.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
