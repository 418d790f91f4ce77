package handler

import (
	"net/http"
	"strings"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Mini Appは操作を1本のPOST /api/action に多重化してくる（旧API互換）。
type ActionHandler struct {
	cartUC  *usecase.CartUsecase
	orderUC *usecase.OrderUsecase
}

// DI
func NewActionHandler(cartUC *usecase.CartUsecase, orderUC *usecase.OrderUsecase) *ActionHandler {
	return &ActionHandler{cartUC: cartUC, orderUC: orderUC}
}

func (h *ActionHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/action", h.dispatch)
}

type ActionRequest struct {
	Action string `json:"action"`
	UserID int64  `json:"userId"`

	// add_to_cart
	ProductID string `json:"id"`
	Delta     int64  `json:"delta"`

	// place_order。cartが空ならサーバー保存カートを使う。
	Cart           []usecase.CartLine `json:"cart"`
	Name           string             `json:"name"`
	Phone          string             `json:"phone"`
	Address        string             `json:"address"`
	DeliveryType   string             `json:"deliveryType"`
	DeliveryDate   string             `json:"deliveryDate"`
	Comment        string             `json:"comment"`
	IdempotencyKey string             `json:"idempotencyKey"`
}

type PlaceOrderEnvelope struct {
	Status  string              `json:"status"`
	OrderID string              `json:"orderId"`
	Message string              `json:"message"`
	Order   usecase.OrderOutput `json:"order"`
}

func (h *ActionHandler) dispatch(c echo.Context) error {
	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid body"))
	}

	switch req.Action {
	case "add_to_cart":
		out, err := h.cartUC.ApplyDelta(c.Request().Context(), req.UserID, req.ProductID, req.Delta)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, CartEnvelope{
			Status: "success",
			Cart:   out.Items,
			Totals: out.Totals,
		})

	case "place_order":
		out, err := h.orderUC.PlaceOrder(c.Request().Context(), req.UserID, usecase.PlaceOrderInput{
			Lines:          req.Cart,
			Name:           req.Name,
			Phone:          req.Phone,
			Address:        req.Address,
			DeliveryType:   model.DeliveryType(strings.ToUpper(strings.TrimSpace(req.DeliveryType))),
			DeliveryDate:   req.DeliveryDate,
			Comment:        req.Comment,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, PlaceOrderEnvelope{
			Status:  "success",
			OrderID: out.Number,
			Message: "Order " + out.Number + " confirmed",
			Order:   out,
		})

	default:
		return c.JSON(http.StatusBadRequest, errorJSON("unknown action"))
	}
}
