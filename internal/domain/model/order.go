package model

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusEnRoute   OrderStatus = "EN_ROUTE"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// COMPLETED / CANCELLED からは動かせない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPreparing, OrderStatusEnRoute,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type DeliveryType string

const (
	DeliveryPickup  DeliveryType = "PICKUP"
	DeliveryCourier DeliveryType = "COURIER"
)

// 注文番号の先頭1文字。C=引き取り(collect)、D=配達(delivery)。
func (t DeliveryType) Tag() string {
	if t == DeliveryCourier {
		return "D"
	}
	return "C"
}

// 配達日ごとのパーティション（delivery_date, seq）が旧システムの
// 「日別シート＋行番号」に相当する。
type Order struct {
	ID              int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Number          string       `gorm:"type:varchar(32);not null;index" json:"number"`
	DeliveryDate    time.Time    `gorm:"type:date;not null;uniqueIndex:idx_orders_partition_seq" json:"delivery_date"`
	Seq             int64        `gorm:"not null;uniqueIndex:idx_orders_partition_seq" json:"seq"`
	UserID          int64        `gorm:"not null;index" json:"user_id"`
	CustomerName    string       `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone   string       `gorm:"type:varchar(32);not null" json:"customer_phone"`
	CustomerAddress string       `gorm:"type:text" json:"customer_address"`
	DeliveryType    DeliveryType `gorm:"type:varchar(20);not null" json:"delivery_type"`
	Status          OrderStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	ItemsText       string       `gorm:"type:text;not null" json:"items_text"`
	TotalPrice      int64        `gorm:"not null" json:"total_price"`
	Comment         string       `gorm:"type:text" json:"comment"`
	IdempotencyKey  string       `gorm:"type:varchar(255);index" json:"-"`
	CreatedAt       time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 例: D-003 / 日付入りだと D-01.15-003
func FormatOrderNumber(t DeliveryType, deliveryDate time.Time, seq int64, withDate bool) string {
	if withDate {
		return fmt.Sprintf("%s-%s-%03d", t.Tag(), deliveryDate.Format("01.02"), seq)
	}
	return fmt.Sprintf("%s-%03d", t.Tag(), seq)
}
