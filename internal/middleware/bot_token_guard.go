package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

//webhookパスのトークンがボットトークンと一致するかを確認します。

func BotTokenGuard(botToken string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Param("token")
			if token == "" {
				return c.NoContent(http.StatusNotFound)
			}

			//比較は定数時間で
			if subtle.ConstantTimeCompare([]byte(token), []byte(botToken)) != 1 {
				return c.NoContent(http.StatusNotFound)
			}

			return next(c)
		}
	}
}
