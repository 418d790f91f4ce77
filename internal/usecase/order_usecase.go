package usecase

import (
	"context"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"app/internal/cache"
	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/pricing"
	repo "app/internal/repository"
)

// 注文確定の入力検証。実装は internal/validator。
type OrderValidator interface {
	ValidatePlace(in PlaceOrderInput) error
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orderRepo repo.OrderRepository
	cache     cache.ProductCache
	bus       event.Publisher
	pricing   pricing.Policy
	validator OrderValidator

	lowStockAt  int64
	numWithDate bool
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orderRepo repo.OrderRepository,
	productCache cache.ProductCache,
	bus event.Publisher,
	policy pricing.Policy,
	validator OrderValidator,
	lowStockAt int64,
	numWithDate bool,
) *OrderUsecase {
	return &OrderUsecase{
		tx:          tx,
		orderRepo:   orderRepo,
		cache:       productCache,
		bus:         bus,
		pricing:     policy,
		validator:   validator,
		lowStockAt:  lowStockAt,
		numWithDate: numWithDate,
	}
}

type CartLine struct {
	ProductID string `json:"id"`
	Qty       int64  `json:"qty"`
}

type PlaceOrderInput struct {
	// 空ならサーバー保存のカートを使う
	Lines []CartLine

	Name         string
	Phone        string
	Address      string
	DeliveryType model.DeliveryType
	// DD.MM.YYYY。空なら今日。
	DeliveryDate string
	Comment      string

	// 任意。同じキーの再送は同じ注文を返す。
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	Number       string            `json:"orderId"`
	Status       string            `json:"status"`
	DeliveryDate string            `json:"delivery_date"`
	TotalPrice   int64             `json:"total_price"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []OrderItemOutput `json:"items"`
}

// PlaceOrder は注文確定のコア。
// 在庫の再チェックと減算、連番の採番、注文行の作成、カートのクリアを
// 1トランザクションで行う。通知と顧客台帳はcommit後のイベントに流す。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid userId")
	}
	if err := u.validator.ValidatePlace(in); err != nil {
		return OrderOutput{}, err
	}

	deliveryDate, err := parseDeliveryDate(in.DeliveryDate)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid delivery date")
	}

	var (
		out      OrderOutput
		placed   model.Order
		items    []model.OrderItem
		lowStock []model.Product
		replayed bool
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if found {
				prevItems, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(existing, prevItems)
				replayed = true
				return nil
			}
		}

		lines := in.Lines
		if len(lines) == 0 {
			// 変種によってはカートがサーバー保存
			var err error
			lines, err = u.loadServerCart(ctx, r, userID)
			if err != nil {
				return err
			}
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// クライアントやキャッシュの在庫値は信用しない。ここで取り直す。
		items = make([]model.OrderItem, 0, len(lines))
		textLines := make([]string, 0, len(lines))
		var itemsTotal int64 = 0

		for _, line := range lines {
			if line.Qty <= 0 {
				return NewHTTPError(http.StatusBadRequest, "invalid quantity")
			}

			p, err := r.Products().FindByID(ctx, line.ProductID)
			if err == repo.ErrNotFound {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}

			// 条件付き減算。足りなければそのままロールバック。
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, line.ProductID, line.Qty)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return &InsufficientStockError{ProductName: p.Name, Available: p.Stock}
			}

			now := time.Now()
			items = append(items, model.OrderItem{
				ProductID:           line.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            line.Qty,
				CreatedAt:           now,
			})
			textLines = append(textLines, p.Name+" x "+strconv.FormatInt(line.Qty, 10))
			itemsTotal += p.Price * line.Qty

			// 減算後の残りで閾値判定
			after, err := r.Products().FindByID(ctx, line.ProductID)
			if err == nil && !after.IsUnlimited && after.Stock <= u.lowStockAt {
				lowStock = append(lowStock, after)
			}
		}

		total := itemsTotal + u.pricing.DeliveryFee(in.DeliveryType, itemsTotal)

		// 連番はパーティション内の既存件数+1
		count, err := r.Orders().CountByDeliveryDate(ctx, deliveryDate)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		seq := count + 1
		number := model.FormatOrderNumber(in.DeliveryType, deliveryDate, seq, u.numWithDate)

		now := time.Now()
		order := model.Order{
			Number:          number,
			DeliveryDate:    deliveryDate,
			Seq:             seq,
			UserID:          userID,
			CustomerName:    strings.TrimSpace(in.Name),
			CustomerPhone:   strings.TrimSpace(in.Phone),
			CustomerAddress: strings.TrimSpace(in.Address),
			DeliveryType:    in.DeliveryType,
			Status:          model.OrderStatusNew,
			ItemsText:       strings.Join(textLines, "\n"),
			TotalPrice:      total,
			Comment:         in.Comment,
			IdempotencyKey:  strings.TrimSpace(in.IdempotencyKey),
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		order.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// サーバー保存カートはCHECKED_OUTにして空にする
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == nil {
			if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Carts().Clear(ctx, cart.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		placed = order
		out = toOrderOutput(order, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	if replayed {
		return out, nil
	}

	// 注文行が書けた時点で確定。以降は失敗しても巻き戻さない。
	u.InvalidateCatalog(ctx)
	u.bus.Publish(ctx, event.TypeOrderPlaced, event.OrderPlaced{Order: placed, Items: items})
	for _, p := range lowStock {
		u.bus.Publish(ctx, event.TypeLowStock, event.LowStock{Product: p})
	}

	return out, nil
}

func (u *OrderUsecase) InvalidateCatalog(ctx context.Context) {
	_ = u.cache.Invalidate(ctx)
}

// CheckStock はカート全行を現在庫と突き合わせる。状態は一切変えない。
func (u *OrderUsecase) CheckStock(ctx context.Context, lines []CartLine) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for _, line := range lines {
			if line.Qty <= 0 {
				return NewHTTPError(http.StatusBadRequest, "invalid quantity")
			}

			p, err := r.Products().FindByID(ctx, line.ProductID)
			if err == repo.ErrNotFound {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			if !p.HasStock(line.Qty) {
				return &InsufficientStockError{ProductName: p.Name, Available: p.Stock}
			}
		}
		return nil
	})
}

type SummaryLine struct {
	Name     string `json:"name"`
	Quantity int64  `json:"qty"`
}

var summaryLineRe = regexp.MustCompile(`^(.+) x (\d+)$`)

// DailySummary は配達日ごとの「品名→合計数」。厨房の仕込み表に使う。
func (u *OrderUsecase) DailySummary(ctx context.Context, dateStr string) ([]SummaryLine, error) {
	date, err := parseDeliveryDate(dateStr)
	if err != nil {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid date")
	}

	orders, err := u.orderRepo.ListByDeliveryDate(ctx, date)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	totals := map[string]int64{}
	for _, o := range orders {
		if o.Status == model.OrderStatusCancelled {
			continue
		}
		for _, line := range strings.Split(o.ItemsText, "\n") {
			m := summaryLineRe.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			qty, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				continue
			}
			totals[strings.TrimSpace(m[1])] += qty
		}
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SummaryLine, 0, len(names))
	for _, name := range names {
		out = append(out, SummaryLine{Name: name, Quantity: totals[name]})
	}
	return out, nil
}

func (u *OrderUsecase) loadServerCart(ctx context.Context, r repo.TxRepos, userID int64) ([]CartLine, error) {
	cart, err := r.Carts().FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, CartLine{ProductID: it.ProductID, Qty: it.Quantity})
	}
	return lines, nil
}

const deliveryDateLayout = "02.01.2006"

// 空なら今日（注文日ではなく配達日のパーティション名になる）
func parseDeliveryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(deliveryDateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		Number:       o.Number,
		Status:       string(o.Status),
		DeliveryDate: o.DeliveryDate.Format(deliveryDateLayout),
		TotalPrice:   o.TotalPrice,
		CreatedAt:    o.CreatedAt,
		Items:        outItems,
	}
}
