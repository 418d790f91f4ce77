package handler

import (
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 在庫照会と日次集計
type OrderHandler struct {
	uc *usecase.OrderUsecase
}

// DI
func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/check_stock", h.checkStock)
	e.GET("/api/summary", h.summary)
}

type CheckStockRequest struct {
	Cart []usecase.CartLine `json:"cart"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// checkStock は確定前の事前チェック。何も変更しない。
func (h *OrderHandler) checkStock(c echo.Context) error {
	var req CheckStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid body"))
	}

	if err := h.uc.CheckStock(c.Request().Context(), req.Cart); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, StatusResponse{Status: "success"})
}

type SummaryResponse struct {
	Status  string                `json:"status"`
	Date    string                `json:"date"`
	Summary []usecase.SummaryLine `json:"summary"`
}

func (h *OrderHandler) summary(c echo.Context) error {
	date := c.QueryParam("date")

	lines, err := h.uc.DailySummary(c.Request().Context(), date)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SummaryResponse{Status: "success", Date: date, Summary: lines})
}
