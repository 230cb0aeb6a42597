package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/sms-ticket-bridge/internal/events"
	"github.com/spec-kit/sms-ticket-bridge/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// dispatcher. Handlers run synchronously inside Publish.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker started", zap.Strings("events", []string{
			string(events.EventTicketCreated),
			string(events.EventMessageAppended),
			string(events.EventTicketRestored),
			string(events.EventRestorePartialFailure),
			string(events.EventSMSRelayed),
			string(events.EventSubscriptionChanged),
		}))
	}
}
