package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/cache"
	"app/internal/domain/model"
	"app/internal/event"
	repo "app/internal/repository"
)

// スタッフのボタン操作によるステータス変更。
// NEW → {PREPARING, EN_ROUTE, READY, COMPLETED, CANCELLED}、
// 終端（COMPLETED / CANCELLED）からは動かせない。
type OrderStatusUsecase struct {
	tx    repo.TransactionManager
	cache cache.ProductCache
	bus   event.Publisher
}

func NewOrderStatusUsecase(tx repo.TransactionManager, productCache cache.ProductCache, bus event.Publisher) *OrderStatusUsecase {
	return &OrderStatusUsecase{tx: tx, cache: productCache, bus: bus}
}

// UpdateStatusByNumber は番号＋配達日で注文を引いてステータスを変える。
// 番号はパーティション内でのみ一意なので、日付が必要。
func (u *OrderStatusUsecase) UpdateStatusByNumber(ctx context.Context, deliveryDate time.Time, number string, newStatus model.OrderStatus) error {
	if number == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid order number")
	}
	if !newStatus.IsValid() || newStatus == model.OrderStatusNew {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		changed  model.Order
		previous model.OrderStatus
		restock  bool
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByNumberAndDate(ctx, deliveryDate, number)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない
		if o.Status == newStatus {
			return nil
		}
		// 終端ガード
		if o.Status.IsTerminal() {
			return NewHTTPError(http.StatusBadRequest, "order is final")
		}

		// キャンセルは在庫を戻す
		if newStatus == model.OrderStatusCancelled {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			restock = true
		}

		if err := r.Orders().UpdateStatus(ctx, o.ID, newStatus); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		previous = o.Status
		o.Status = newStatus
		changed = o
		return nil
	})

	if err != nil {
		return err
	}
	if changed.ID == 0 {
		// no-op（同一ステータス）
		return nil
	}

	if restock {
		_ = u.cache.Invalidate(ctx)
	}
	u.bus.Publish(ctx, event.TypeStatusChanged, event.StatusChanged{Order: changed, Previous: previous})

	return nil
}
