package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// パーティション（配達日）内で注文番号を引く。番号は日をまたぐと重複しうる。
	FindByNumberAndDate(ctx context.Context, deliveryDate time.Time, number string) (model.Order, error)

	// パーティション内の既存注文数。次の連番 = count + 1。
	CountByDeliveryDate(ctx context.Context, deliveryDate time.Time) (int64, error)

	ListByDeliveryDate(ctx context.Context, deliveryDate time.Time) ([]model.Order, error)

	// ボットの「どこに注文？」用。その配達日の、そのユーザーの最新注文。
	LatestByUserAndDate(ctx context.Context, userID int64, deliveryDate time.Time) (model.Order, bool, error)

	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
}
