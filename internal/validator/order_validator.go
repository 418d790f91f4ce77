package validator

import (
	"net/http"
	"strings"

	"app/internal/domain/model"
	"app/internal/usecase"
)

type orderValidator struct{}

// Usecaseは interface を依存注入
func NewOrderValidator() usecase.OrderValidator {
	return &orderValidator{}
}

// 注文確定の入力を検証
func (v *orderValidator) ValidatePlace(in usecase.PlaceOrderInput) error {
	// 必須チェック
	if strings.TrimSpace(in.Name) == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "name required")
	}

	// 電話はフォーマット自由、数字11桁以上だけ要求（+7 XXX XXX XX XX 相当）
	if len(usecase.PhoneDigits(in.Phone)) < 11 {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid phone")
	}

	switch in.DeliveryType {
	case model.DeliveryPickup, model.DeliveryCourier:
	default:
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid delivery type")
	}

	// 宅配は住所必須
	if in.DeliveryType == model.DeliveryCourier && strings.TrimSpace(in.Address) == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "address required")
	}

	if len(in.IdempotencyKey) > 255 {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}

	return nil
}
