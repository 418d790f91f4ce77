package handler

import (
	"net/http"
	"strconv"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/get_cart のHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/get_cart", h.getCart)
}

type CartEnvelope struct {
	Status string                      `json:"status"`
	Cart   []usecase.CartItemResponse `json:"cart"`
	Totals usecase.CartTotals         `json:"totals"`
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, err := strconv.ParseInt(c.QueryParam("userId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid userId"))
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, CartEnvelope{
		Status: "success",
		Cart:   out.Items,
		Totals: out.Totals,
	})
}
