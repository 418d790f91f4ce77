package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品は店側がスプレッドシート経由で編集するため、サーバーからは
// 読み取りと在庫更新だけを約束する。
type ProductRepository interface {
	ListActive(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (model.Product, error)
}
