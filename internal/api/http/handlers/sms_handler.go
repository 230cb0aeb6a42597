package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/gateway"
	"github.com/spec-kit/sms-ticket-bridge/internal/service"
)

// SMSHandler receives inbound SMS from the message gateway.
type SMSHandler struct {
	inbound *service.InboundService
}

// NewSMSHandler constructs handler.
func NewSMSHandler(inbound *service.InboundService) *SMSHandler {
	return &SMSHandler{inbound: inbound}
}

// Incoming POST /sms/incoming. The gateway always gets a 200 with a reply,
// even when the message could not be threaded.
func (h *SMSHandler) Incoming(c *fiber.Ctx) error {
	reply := h.inbound.HandleMessage(c.UserContext(), domain.InboundMessage{
		Body: c.FormValue("Body"),
		From: c.FormValue("From"),
		To:   c.FormValue("To"),
	})
	c.Set(fiber.HeaderContentType, gateway.TwiMLContentType)
	return c.Status(fiber.StatusOK).Send(gateway.RenderReply(reply.Message))
}
