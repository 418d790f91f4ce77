package server

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/ping", ping)

	h.Product.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e)
	h.Action.RegisterRoutes(e)
	h.Order.RegisterRoutes(e)
	h.Webhook.RegisterRoutes(e, h.BotToken)
}
