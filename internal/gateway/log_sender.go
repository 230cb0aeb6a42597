package gateway

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender logs messages instead of delivering them. It is selected only
// with GATEWAY_BACKEND=log.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg OutboundSMS) (string, error) {
	id := "LOG" + uuid.NewString()
	s.logger.Info("sms delivery skipped, gateway not configured",
		zap.String("delivery_id", id),
		zap.String("from", msg.From.String()),
		zap.String("to", msg.To.String()),
		zap.Int("body_length", len(msg.Body)))
	return id, nil
}
