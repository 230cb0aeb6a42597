package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sms-ticket-bridge/internal/api/dto"
	"github.com/spec-kit/sms-ticket-bridge/internal/service"
	apperrors "github.com/spec-kit/sms-ticket-bridge/pkg/util/errorutil"
)

// WebhookHandler relays agent replies from the ticketing backend.
type WebhookHandler struct {
	relay *service.RelayService
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(relay *service.RelayService) *WebhookHandler {
	return &WebhookHandler{relay: relay}
}

// Outgoing POST /sms/outgoing.
func (h *WebhookHandler) Outgoing(c *fiber.Ctx) error {
	var req dto.OutboundWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.relay.Relay(c.UserContext(), req.ToDomain())
	if err != nil {
		return err
	}
	if result.Ignored {
		return c.JSON(dto.RelayResponse{Status: "ignored", Reason: result.IgnoreReason})
	}
	return c.JSON(dto.RelayResponse{
		Success:     true,
		Destination: result.Destination.String(),
		DeliveryID:  result.DeliveryID,
	})
}
