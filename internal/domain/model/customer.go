package model

import "time"

// 顧客台帳。PhoneDigitsは数字だけに正規化した電話番号で、
// 名寄せの主キーとして使う。
type Customer struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Address     string    `gorm:"type:text" json:"address"`
	AddressNorm string    `gorm:"type:text;index" json:"-"`
	Phone       string    `gorm:"type:varchar(32);not null" json:"phone"`
	PhoneDigits string    `gorm:"type:varchar(32);not null;index" json:"-"`
	LastItems   string    `gorm:"type:text" json:"last_items"`
	UserID      int64     `gorm:"index" json:"user_id"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
