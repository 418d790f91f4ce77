package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/pricing"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ValidatorStub struct{ err error }

func (v ValidatorStub) ValidatePlace(usecase.PlaceOrderInput) error { return v.err }

// mutex付きの実在庫。並行確定テスト用。
type fakeInventory struct {
	mu    sync.Mutex
	stock map[string]int64
}

func (f *fakeInventory) SetStock(ctx context.Context, productID string, newStock int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[productID] = newStock
	return nil
}

func (f *fakeInventory) DecreaseStockIfEnough(ctx context.Context, productID string, qty int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stock[productID] < qty {
		return false, nil
	}
	f.stock[productID] -= qty
	return true, nil
}

func (f *fakeInventory) IncreaseStock(ctx context.Context, productID string, qty int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[productID] += qty
	return nil
}

func (f *fakeInventory) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	return nil
}

func validPlaceInput(lines []usecase.CartLine) usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		Lines:        lines,
		Name:         "Ivan",
		Phone:        "+7 900 123 45 67",
		Address:      "Main st 1",
		DeliveryType: model.DeliveryCourier,
		DeliveryDate: "21.06.2026",
	}
}

func TestOrderUsecase_PlaceOrder_EmptyCart(t *testing.T) {
	tx := new(TxManagerMock)
	cartsRepo := new(CartRepoMock)
	tx.Repos = &TxReposMock{carts: cartsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	// サーバー保存カートも無い
	cartsRepo.On("FindActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(tx, new(OrderRepoMock), new(CacheMock), &BusRecorder{},
		pricing.FreeDelivery{}, ValidatorStub{}, 3, false)

	_, err := uc.PlaceOrder(context.Background(), 7, validPlaceInput(nil))
	assert.True(t, errors.Is(err, usecase.ErrEmptyCart))
}

func TestOrderUsecase_PlaceOrder_ProductNotFound(t *testing.T) {
	tx := new(TxManagerMock)
	products := new(ProductRepoMock)
	tx.Repos = &TxReposMock{products: products}
	tx.On("WithinTx", mock.Anything).Return(nil)

	products.On("FindByID", mock.Anything, "ghost").Return(model.Product{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(tx, new(OrderRepoMock), new(CacheMock), &BusRecorder{},
		pricing.FreeDelivery{}, ValidatorStub{}, 3, false)

	_, err := uc.PlaceOrder(context.Background(), 7, validPlaceInput([]usecase.CartLine{{ProductID: "ghost", Qty: 1}}))

	var notFound *usecase.ProductNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assertErrContains(t, err, "ghost")
}

func TestOrderUsecase_PlaceOrder_InsufficientStock(t *testing.T) {
	tx := new(TxManagerMock)
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	tx.Repos = &TxReposMock{products: products, inventory: inventory}
	tx.On("WithinTx", mock.Anything).Return(nil)

	products.On("FindByID", mock.Anything, "cake").
		Return(model.Product{ID: "cake", Name: "Cheesecake", Price: 300, Stock: 1, IsActive: true}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, "cake", int64(3)).Return(false, nil)

	uc := usecase.NewOrderUsecase(tx, new(OrderRepoMock), new(CacheMock), &BusRecorder{},
		pricing.FreeDelivery{}, ValidatorStub{}, 3, false)

	_, err := uc.PlaceOrder(context.Background(), 7, validPlaceInput([]usecase.CartLine{{ProductID: "cake", Qty: 3}}))

	// 商品名と残数の入ったメッセージで断る
	var insufficient *usecase.InsufficientStockError
	assert.True(t, errors.As(err, &insufficient))
	assertErrContains(t, err, "Cheesecake")
	assertErrContains(t, err, "1")
}

func TestOrderUsecase_PlaceOrder_RoundTrip(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	carts := new(CartRepoMock)
	cacheMock := new(CacheMock)
	bus := &BusRecorder{}

	tx.Repos = &TxReposMock{
		orders:     orders,
		orderItems: orderItems,
		carts:      carts,
		inventory:  inventory,
		products:   products,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	// 減算前は在庫5、減算後の読み直しは3
	products.On("FindByID", mock.Anything, "pie").
		Return(model.Product{ID: "pie", Name: "Apple pie", Price: 100, Stock: 5, IsActive: true}, nil).Once()
	products.On("FindByID", mock.Anything, "pie").
		Return(model.Product{ID: "pie", Name: "Apple pie", Price: 100, Stock: 3, IsActive: true}, nil).Once()

	inventory.On("DecreaseStockIfEnough", mock.Anything, "pie", int64(2)).Return(true, nil)

	orders.On("CountByDeliveryDate", mock.Anything, mock.Anything).Return(int64(0), nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(42), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(42), mock.Anything).Return(nil)

	// 確定でサーバーカートはCHECKED_OUTにして空にする
	carts.On("FindActiveByUserID", mock.Anything, int64(7)).Return(model.Cart{ID: 5, UserID: 7}, nil)
	carts.On("UpdateStatus", mock.Anything, int64(5), model.CartStatusCheckedOut).Return(nil)
	carts.On("Clear", mock.Anything, int64(5)).Return(nil)

	cacheMock.On("Invalidate", mock.Anything).Return(nil)

	uc := usecase.NewOrderUsecase(tx, orders, cacheMock, bus,
		pricing.FreeDelivery{}, ValidatorStub{}, 2, false)

	out, err := uc.PlaceOrder(ctx, 7, validPlaceInput([]usecase.CartLine{{ProductID: "pie", Qty: 2}}))
	assert.NoError(t, err)

	// 100 x 2 = 200、宅配はD始まり、最初の注文なので001
	assert.Equal(t, "D-001", out.Number)
	assert.Equal(t, int64(200), out.TotalPrice)
	assert.Equal(t, "21.06.2026", out.DeliveryDate)
	assert.Equal(t, string(model.OrderStatusNew), out.Status)

	placed := bus.Published(event.TypeOrderPlaced)
	if assert.Equal(t, 1, len(placed)) {
		p := placed[0].(event.OrderPlaced)
		assert.Equal(t, "Apple pie x 2", p.Order.ItemsText)
	}
	// 残3 > 閾値2 なので低在庫アラートは出ない
	assert.Equal(t, 0, len(bus.Published(event.TypeLowStock)))

	tx.AssertExpectations(t)
	inventory.AssertExpectations(t)
	orders.AssertExpectations(t)
	orderItems.AssertExpectations(t)
	carts.AssertExpectations(t)
	cacheMock.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_SequenceSharedAcrossDeliveryTypes(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	carts := new(CartRepoMock)
	cacheMock := new(CacheMock)

	tx.Repos = &TxReposMock{
		orders: orders, orderItems: orderItems, carts: carts,
		inventory: inventory, products: products,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	products.On("FindByID", mock.Anything, "pie").
		Return(model.Product{ID: "pie", Name: "Apple pie", Price: 100, Stock: 50, IsActive: true}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, "pie", int64(1)).Return(true, nil)
	orderItems.On("CreateBulk", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	carts.On("FindActiveByUserID", mock.Anything, mock.Anything).Return(model.Cart{}, repo.ErrNotFound)
	cacheMock.On("Invalidate", mock.Anything).Return(nil)

	// パーティションに既に1件 → 次は002。文字が違っても連番は共有。
	orders.On("CountByDeliveryDate", mock.Anything, mock.Anything).Return(int64(1), nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(43), nil)

	uc := usecase.NewOrderUsecase(tx, orders, cacheMock, &BusRecorder{},
		pricing.FreeDelivery{}, ValidatorStub{}, 0, false)

	in := validPlaceInput([]usecase.CartLine{{ProductID: "pie", Qty: 1}})
	in.DeliveryType = model.DeliveryPickup
	in.Address = ""

	out, err := uc.PlaceOrder(ctx, 7, in)
	assert.NoError(t, err)
	assert.Equal(t, "C-002", out.Number)
}

func TestOrderUsecase_PlaceOrder_DeliveryFeeAdded(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	carts := new(CartRepoMock)
	cacheMock := new(CacheMock)

	tx.Repos = &TxReposMock{
		orders: orders, orderItems: orderItems, carts: carts,
		inventory: inventory, products: products,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	products.On("FindByID", mock.Anything, "pie").
		Return(model.Product{ID: "pie", Name: "Apple pie", Price: 100, Stock: 50, IsActive: true}, nil)
	inventory.On("DecreaseStockIfEnough", mock.Anything, "pie", int64(1)).Return(true, nil)
	orders.On("CountByDeliveryDate", mock.Anything, mock.Anything).Return(int64(0), nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(44), nil)
	orderItems.On("CreateBulk", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	carts.On("FindActiveByUserID", mock.Anything, mock.Anything).Return(model.Cart{}, repo.ErrNotFound)
	cacheMock.On("Invalidate", mock.Anything).Return(nil)

	// 500未満の宅配は+150
	policy := pricing.ThresholdSurcharge{Fee: 150, WaiveAt: 500}

	uc := usecase.NewOrderUsecase(tx, orders, cacheMock, &BusRecorder{},
		policy, ValidatorStub{}, 0, false)

	out, err := uc.PlaceOrder(ctx, 7, validPlaceInput([]usecase.CartLine{{ProductID: "pie", Qty: 1}}))
	assert.NoError(t, err)
	assert.Equal(t, int64(250), out.TotalPrice)
}

func TestOrderUsecase_PlaceOrder_IdempotentReplay(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	cacheMock := new(CacheMock)
	bus := &BusRecorder{}

	tx.Repos = &TxReposMock{orders: orders, orderItems: orderItems}
	tx.On("WithinTx", mock.Anything).Return(nil)

	existing := model.Order{
		ID:           42,
		Number:       "D-001",
		DeliveryDate: time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC),
		Status:       model.OrderStatusNew,
		TotalPrice:   200,
	}
	orders.On("FindByIdempotencyKey", mock.Anything, int64(7), "key-1").Return(existing, true, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{}, nil)

	uc := usecase.NewOrderUsecase(tx, orders, cacheMock, bus,
		pricing.FreeDelivery{}, ValidatorStub{}, 3, false)

	in := validPlaceInput([]usecase.CartLine{{ProductID: "pie", Qty: 2}})
	in.IdempotencyKey = "key-1"

	out, err := uc.PlaceOrder(ctx, 7, in)
	assert.NoError(t, err)
	assert.Equal(t, "D-001", out.Number)

	// 再送では何も作らず、イベントも出さない
	orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	cacheMock.AssertNotCalled(t, "Invalidate", mock.Anything)
	assert.Equal(t, 0, len(bus.Published(event.TypeOrderPlaced)))
}

func TestOrderUsecase_PlaceOrder_ConcurrentNeverOversells(t *testing.T) {
	ctx := context.Background()

	inv := &fakeInventory{stock: map[string]int64{"pie": 5}}

	tx := new(TxManagerMock)
	products := new(ProductRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	carts := new(CartRepoMock)
	cacheMock := new(CacheMock)

	tx.Repos = &TxReposMock{
		orders: orders, orderItems: orderItems, carts: carts,
		inventory: inv, products: products,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	products.On("FindByID", mock.Anything, "pie").
		Return(model.Product{ID: "pie", Name: "Apple pie", Price: 100, Stock: 5, IsActive: true}, nil)
	orders.On("CountByDeliveryDate", mock.Anything, mock.Anything).Return(int64(0), nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	orderItems.On("CreateBulk", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	carts.On("FindActiveByUserID", mock.Anything, mock.Anything).Return(model.Cart{}, repo.ErrNotFound)
	cacheMock.On("Invalidate", mock.Anything).Return(nil)

	uc := usecase.NewOrderUsecase(tx, orders, cacheMock, &BusRecorder{},
		pricing.FreeDelivery{}, ValidatorStub{}, 0, false)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := uc.PlaceOrder(ctx, userID, validPlaceInput([]usecase.CartLine{{ProductID: "pie", Qty: 1}}))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(int64(i + 1))
	}
	wg.Wait()

	// 在庫5に対して10人 → ちょうど5人だけ通り、在庫は負にならない
	assert.Equal(t, 5, succeeded)
	inv.mu.Lock()
	assert.Equal(t, int64(0), inv.stock["pie"])
	inv.mu.Unlock()
}

func TestOrderUsecase_CheckStock_MutatesNothing(t *testing.T) {
	tx := new(TxManagerMock)
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	tx.Repos = &TxReposMock{products: products, inventory: inventory}
	tx.On("WithinTx", mock.Anything).Return(nil)

	products.On("FindByID", mock.Anything, "cake").
		Return(model.Product{ID: "cake", Name: "Cheesecake", Price: 300, Stock: 1, IsActive: true}, nil)

	uc := usecase.NewOrderUsecase(tx, new(OrderRepoMock), new(CacheMock), &BusRecorder{},
		pricing.FreeDelivery{}, ValidatorStub{}, 3, false)

	err := uc.CheckStock(context.Background(), []usecase.CartLine{{ProductID: "cake", Qty: 2}})
	assertErrContains(t, err, "Cheesecake")
	assertErrContains(t, err, "1")

	// 照会は読むだけ
	inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	inventory.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_DailySummary_AggregatesAndSkipsCancelled(t *testing.T) {
	orders := new(OrderRepoMock)

	date := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)
	orders.On("ListByDeliveryDate", mock.Anything, date).Return([]model.Order{
		{Status: model.OrderStatusNew, ItemsText: "Apple pie x 2\nCheesecake x 1"},
		{Status: model.OrderStatusPreparing, ItemsText: "Apple pie x 1"},
		{Status: model.OrderStatusCancelled, ItemsText: "Apple pie x 9"},
	}, nil)

	uc := usecase.NewOrderUsecase(new(TxManagerMock), orders, new(CacheMock), &BusRecorder{},
		pricing.FreeDelivery{}, ValidatorStub{}, 3, false)

	lines, err := uc.DailySummary(context.Background(), "21.06.2026")
	assert.NoError(t, err)

	assert.Equal(t, []usecase.SummaryLine{
		{Name: "Apple pie", Quantity: 3},
		{Name: "Cheesecake", Quantity: 1},
	}, lines)
}
