package usecase

import (
	"errors"
	"fmt"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 注文パスのエラー分類。handlerがHTTPステータスと
// {status:"error", message} に変換する。

var (
	ErrEmptyCart = errors.New("cart is empty")

	// DB/キャッシュ等のバックエンド障害。空カタログへのフォールバックはしない。
	ErrBackendUnavailable = errors.New("backend unavailable")
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

type InsufficientStockError struct {
	ProductName string
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %q: only %d left", e.ProductName, e.Available)
}

type StockExceededError struct {
	ProductName string
	Max         int64
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("stock exceeded for %q: max %d", e.ProductName, e.Max)
}
