package cache

import (
	"context"

	"app/internal/domain/model"
)

// カタログのキャッシュポート。
// TTLは実装側が持ち、注文確定・手動在庫調整のたびにInvalidateを呼ぶ。
type ProductCache interface {
	// 2番目の戻り値はヒットしたかどうか
	Get(ctx context.Context) ([]model.Product, bool, error)
	Set(ctx context.Context, products []model.Product) error
	Invalidate(ctx context.Context) error
}
