package server

import (
	"net/http"

	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
	Action  *handler.ActionHandler
	Order   *handler.OrderHandler
	Webhook *handler.WebhookHandler

	BotToken string
}

func New(h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	RegisterRoutes(e, h)
	return e
}

func Start(addr string, h Handlers) error {
	return New(h).Start(addr)
}

func ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}
