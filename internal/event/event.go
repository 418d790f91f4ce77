package event

import (
	"time"

	"app/internal/domain/model"
)

type Type string

const (
	TypeOrderPlaced   Type = "order_placed"
	TypeStatusChanged Type = "status_changed"
	TypeLowStock      Type = "low_stock"
)

type Event struct {
	ID      string
	Type    Type
	At      time.Time
	Payload any
}

type OrderPlaced struct {
	Order model.Order
	Items []model.OrderItem
}

type StatusChanged struct {
	Order    model.Order
	Previous model.OrderStatus
}

type LowStock struct {
	Product model.Product
}
