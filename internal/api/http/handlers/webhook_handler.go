package handlers

import (
	"context"
	"encoding/json"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/bot"
)

// WebhookHandler ingests Bot API updates pushed by Telegram. Each update
// is acknowledged immediately and processed on the actor's queue, so a
// slow handler never makes Telegram retry the delivery.
type WebhookHandler struct {
	router    *bot.Router
	sequencer *bot.Sequencer
	logger    *zap.Logger
	secret    string
}

// NewWebhookHandler returns a new handler instance.
func NewWebhookHandler(router *bot.Router, sequencer *bot.Sequencer, logger *zap.Logger, secret string) *WebhookHandler {
	return &WebhookHandler{router: router, sequencer: sequencer, logger: logger, secret: secret}
}

// Receive validates and enqueues one pushed update.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	if h.secret != "" && c.Get("X-Telegram-Bot-Api-Secret-Token") != h.secret {
		return c.SendStatus(fiber.StatusForbidden)
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		h.logger.Warn("malformed webhook body", zap.Error(err))
		return c.SendStatus(fiber.StatusBadRequest)
	}

	actorID := bot.ActorID(update)
	if actorID == 0 {
		return c.SendStatus(fiber.StatusOK)
	}
	h.sequencer.Do(actorID, func() {
		h.router.HandleUpdate(context.Background(), update)
	})
	return c.SendStatus(fiber.StatusOK)
}
