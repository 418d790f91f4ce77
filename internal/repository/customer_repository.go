package repository

import (
	"context"

	"app/internal/domain/model"
)

type CustomerRepository interface {
	// digitsは数字だけに正規化済み。部分一致で探す（旧台帳の書式ゆれ対策）。
	FindByPhoneDigits(ctx context.Context, digits string) (model.Customer, bool, error)

	// 正規化済み住所での名寄せ（同一世帯のマージ用）
	FindByNormalizedAddress(ctx context.Context, normalized string) (model.Customer, bool, error)

	FindByUserID(ctx context.Context, userID int64) (model.Customer, bool, error)

	Create(ctx context.Context, c model.Customer) error
	Update(ctx context.Context, c model.Customer) error
}
