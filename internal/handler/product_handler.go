package handler

import (
	"errors"
	"net/http"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 旧APIのエラー封筒 {status:"error", message}
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorJSON(message string) ErrorResponse {
	return ErrorResponse{Status: "error", Message: message}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, errorJSON(he.Message))
	}

	// 注文パスの分類エラーはメッセージをそのまま客に見せる
	var notFound *usecase.ProductNotFoundError
	if errors.As(err, &notFound) {
		return c.JSON(http.StatusNotFound, errorJSON(notFound.Error()))
	}
	var insufficient *usecase.InsufficientStockError
	if errors.As(err, &insufficient) {
		return c.JSON(http.StatusConflict, errorJSON(insufficient.Error()))
	}
	var exceeded *usecase.StockExceededError
	if errors.As(err, &exceeded) {
		return c.JSON(http.StatusConflict, errorJSON(exceeded.Error()))
	}
	if errors.Is(err, usecase.ErrEmptyCart) {
		return c.JSON(http.StatusBadRequest, errorJSON("cart is empty"))
	}
	if errors.Is(err, usecase.ErrBackendUnavailable) {
		return c.JSON(http.StatusInternalServerError, errorJSON("backend unavailable"))
	}

	//500
	return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
}

// /api/get_products の公開API
type ProductHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewProductHandler(uc *usecase.CatalogUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/get_products", h.list)
}

type ProductsResponse struct {
	Status   string          `json:"status"`
	Products []model.Product `json:"products"`
}

func (h *ProductHandler) list(c echo.Context) error {
	products, err := h.uc.ListActiveProducts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, ProductsResponse{Status: "success", Products: products})
}
