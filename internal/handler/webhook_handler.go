package handler

import (
	"net/http"

	"app/internal/middleware"
	"app/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
)

// Telegram webhookの受け口。Telegram側へは常に200を返す
// （エラーを返すと同じupdateを何度も再送してくる）。
type WebhookHandler struct {
	dispatcher *notify.Dispatcher
}

// DI
func NewWebhookHandler(dispatcher *notify.Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo, botToken string) {
	e.POST("/bot:token", h.receive, middleware.BotTokenGuard(botToken))
}

func (h *WebhookHandler) receive(c echo.Context) error {
	var update tgbotapi.Update
	if err := c.Bind(&update); err != nil {
		return c.NoContent(http.StatusOK)
	}

	h.dispatcher.ProcessUpdate(c.Request().Context(), update)
	return c.NoContent(http.StatusOK)
}
