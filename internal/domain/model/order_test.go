package model_test

import (
	"testing"
	"time"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestFormatOrderNumber(t *testing.T) {
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// C=引き取り、D=配達
	assert.Equal(t, "C-001", model.FormatOrderNumber(model.DeliveryPickup, date, 1, false))
	assert.Equal(t, "D-012", model.FormatOrderNumber(model.DeliveryCourier, date, 12, false))

	// 日付入り形式
	assert.Equal(t, "D-01.15-003", model.FormatOrderNumber(model.DeliveryCourier, date, 3, true))
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, model.OrderStatusCompleted.IsTerminal())
	assert.True(t, model.OrderStatusCancelled.IsTerminal())

	assert.False(t, model.OrderStatusNew.IsTerminal())
	assert.False(t, model.OrderStatusPreparing.IsTerminal())
	assert.False(t, model.OrderStatusEnRoute.IsTerminal())
	assert.False(t, model.OrderStatusReady.IsTerminal())
}

func TestOrderStatus_IsValid(t *testing.T) {
	assert.True(t, model.OrderStatusEnRoute.IsValid())
	assert.False(t, model.OrderStatus("SHIPPED").IsValid())
}

func TestProduct_HasStock(t *testing.T) {
	assert.True(t, model.Product{Stock: 5}.HasStock(5))
	assert.False(t, model.Product{Stock: 5}.HasStock(6))

	// 在庫0は売り切れ
	assert.False(t, model.Product{Stock: 0}.HasStock(1))

	// 無制限は在庫値を見ない
	assert.True(t, model.Product{Stock: 0, IsUnlimited: true}.HasStock(100))
}
