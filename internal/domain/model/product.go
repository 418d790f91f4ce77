package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品IDは旧システム（スプレッドシート）由来の文字列キー
type Product struct {
	ID          string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	Category    string         `gorm:"type:varchar(100)" json:"category"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `gorm:"type:text" json:"imageUrl"`
	Price       int64          `gorm:"not null" json:"price"`
	Stock       int64          `gorm:"not null" json:"stock"`
	IsUnlimited bool           `gorm:"not null;default:false" json:"is_unlimited"`
	IsActive    bool           `gorm:"not null;default:false" json:"-"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// 在庫0は「売り切れ」。無制限は IsUnlimited で明示する。
func (p Product) HasStock(qty int64) bool {
	if p.IsUnlimited {
		return true
	}
	return p.Stock >= qty
}
