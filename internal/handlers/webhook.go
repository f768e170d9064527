package handlers

import (
	"net/http"

	"eventsbot/internal/bot"
	"eventsbot/internal/log"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookHandler receives updates pushed by Telegram.
type WebhookHandler struct {
	chat *ChatHandler
}

func NewWebhookHandler(chat *ChatHandler) *WebhookHandler {
	return &WebhookHandler{chat: chat}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Warn.Printf("bad webhook payload: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}
	if ev, ok := bot.FromUpdate(update); ok {
		h.chat.Handle(c.Request.Context(), ev)
	}
	// Telegram retries anything that isn't 200
	c.Status(http.StatusOK)
}
