package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/cache"
	"app/internal/domain/model"
	"app/internal/event"
	repo "app/internal/repository"
)

// カタログ読み出し＋短TTLキャッシュ。
// ポーリングするMini-Appクライアントの読みをキャッシュで受ける。
type CatalogUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	cache         cache.ProductCache
	bus           event.Publisher
	lowStockAt    int64
}

func NewCatalogUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	productCache cache.ProductCache,
	bus event.Publisher,
	lowStockAt int64,
) *CatalogUsecase {
	return &CatalogUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		cache:         productCache,
		bus:           bus,
		lowStockAt:    lowStockAt,
	}
}

// 公開中の商品一覧。読み取り失敗は ErrBackendUnavailable として返す。
// 旧実装は空一覧に化けさせていたが、それはやめた。
func (u *CatalogUsecase) ListActiveProducts(ctx context.Context) ([]model.Product, error) {
	if products, hit, err := u.cache.Get(ctx); err == nil && hit {
		return products, nil
	}

	products, err := u.productRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// キャッシュ書き込みはベストエフォート
	_ = u.cache.Set(ctx, products)

	return products, nil
}

// 注文確定・手動在庫調整の直後に呼ぶ
func (u *CatalogUsecase) InvalidateCache(ctx context.Context) {
	_ = u.cache.Invalidate(ctx)
}

// 店側の手動在庫調整。履歴を残し、キャッシュを無効化する。
func (u *CatalogUsecase) AdjustStock(ctx context.Context, productID string, newStock int64, reason string) error {
	if strings.TrimSpace(productID) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}

	//変更前の在庫（before）
	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.inventoryRepo.SetStock(ctx, productID, newStock); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//履歴を作成（差分）
	adj := model.InventoryAdjustment{
		ProductID: productID,
		Delta:     newStock - p.Stock,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: time.Now(),
	}
	if err := u.inventoryRepo.CreateAdjustment(ctx, adj); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.InvalidateCache(ctx)

	if !p.IsUnlimited && newStock <= u.lowStockAt {
		p.Stock = newStock
		u.bus.Publish(ctx, event.TypeLowStock, event.LowStock{Product: p})
	}

	return nil
}
