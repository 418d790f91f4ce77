package usecase

import (
	"context"
	"net/http"
	"strings"

	repo "app/internal/repository"
)

// CartUsecase はユーザーごとのカート操作。
// ユーザーはTelegramのchat idで識別する。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

type CartItemResponse struct {
	ProductID string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"qty"`
}

// 旧APIの totals:{finalTotal, totalQty} に合わせる
type CartTotals struct {
	FinalTotal int64 `json:"finalTotal"`
	TotalQty   int64 `json:"totalQty"`
}

type CartResponse struct {
	Items  []CartItemResponse `json:"items"`
	Totals CartTotals         `json:"totals"`
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid userId")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// ApplyDelta は数量の増減を1回で適用する。
// 結果が0以下になる明細は行ごと削除。在庫超過は StockExceededError（上限入り）。
func (u *CartUsecase) ApplyDelta(ctx context.Context, userID int64, productID string, delta int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid userId")
	}
	if strings.TrimSpace(productID) == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if delta == 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	cart, err := u.cartRepo.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var existing *struct {
		id  int64
		qty int64
	}
	for _, it := range items {
		if it.ProductID == productID {
			existing = &struct {
				id  int64
				qty int64
			}{it.ID, it.Quantity}
			break
		}
	}

	var existingQty int64
	if existing != nil {
		existingQty = existing.qty
	}
	newQty := existingQty + delta

	// 0以下は「行を消す」。0を保存することはない。
	if newQty <= 0 {
		if existing != nil {
			if err := u.cartItemRepo.DeleteByID(ctx, existing.id); err != nil && err != repo.ErrNotFound {
				return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		return u.buildCartResponse(ctx, cart.ID)
	}

	// 増やすときだけ商品と在庫を確認する
	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return CartResponse{}, &ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, &ProductNotFoundError{ProductID: productID}
	}
	if !p.HasStock(newQty) {
		return CartResponse{}, &StockExceededError{ProductName: p.Name, Max: p.Stock}
	}

	if existing != nil {
		if err := u.cartItemRepo.UpdateQuantity(ctx, existing.id, newQty); err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	} else {
		if err := u.cartItemRepo.UpsertByCartAndProduct(ctx, cart.ID, productID, newQty, p.Price); err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// cartIDの明細をまとめてCartResponseを作る。
// 商品が消えた明細は合計から除外する（落とさない）。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	totals := CartTotals{}

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err != nil {
			continue
		}
		if !p.IsActive {
			continue
		}

		respItems = append(respItems, CartItemResponse{
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})

		totals.FinalTotal += it.UnitPriceSnapshot * it.Quantity
		totals.TotalQty += it.Quantity
	}

	return CartResponse{Items: respItems, Totals: totals}, nil
}
