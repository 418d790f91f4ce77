package usecase

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode"

	"app/internal/domain/model"
	"app/internal/event"
	repo "app/internal/repository"
)

// 顧客台帳のupsert。注文確定イベントの購読者として動き、
// 失敗しても注文には影響しない。
type CustomerUsecase struct {
	customers repo.CustomerRepository
}

func NewCustomerUsecase(customers repo.CustomerRepository) *CustomerUsecase {
	return &CustomerUsecase{customers: customers}
}

// UpsertFromOrder は電話番号（数字のみ）で名寄せし、
// 見つからなければ住所で同一世帯をマージ、それでもなければ新規作成。
func (u *CustomerUsecase) UpsertFromOrder(ctx context.Context, o model.Order) error {
	digits := PhoneDigits(o.CustomerPhone)

	if c, found, err := u.customers.FindByPhoneDigits(ctx, digits); err != nil {
		return err
	} else if found {
		// 既存の表示名は上書きしない（台帳側の手直しを尊重）
		c.Address = o.CustomerAddress
		c.AddressNorm = NormalizeAddress(o.CustomerAddress)
		c.Phone = o.CustomerPhone
		c.PhoneDigits = digits
		c.LastItems = o.ItemsText
		c.UserID = o.UserID
		return u.customers.Update(ctx, c)
	}

	if addr := NormalizeAddress(o.CustomerAddress); addr != "" {
		if c, found, err := u.customers.FindByNormalizedAddress(ctx, addr); err != nil {
			return err
		} else if found {
			c.Phone = o.CustomerPhone
			c.PhoneDigits = digits
			c.LastItems = o.ItemsText
			c.UserID = o.UserID
			return u.customers.Update(ctx, c)
		}
	}

	now := time.Now()
	return u.customers.Create(ctx, model.Customer{
		Name:        o.CustomerName,
		Address:     o.CustomerAddress,
		AddressNorm: NormalizeAddress(o.CustomerAddress),
		Phone:       o.CustomerPhone,
		PhoneDigits: digits,
		LastItems:   o.ItemsText,
		UserID:      o.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// イベント購読用
func (u *CustomerUsecase) HandleOrderPlaced(ctx context.Context, ev event.Event) {
	placed, ok := ev.Payload.(event.OrderPlaced)
	if !ok {
		return
	}
	if err := u.UpsertFromOrder(ctx, placed.Order); err != nil {
		log.Printf("customer upsert failed: order=%s: %v", placed.Order.Number, err)
	}
}

func (u *CustomerUsecase) FindByUserID(ctx context.Context, userID int64) (model.Customer, bool, error) {
	return u.customers.FindByUserID(ctx, userID)
}

// 数字以外を全部落とす
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// 小文字化＋空白圧縮＋区切り記号除去
func NormalizeAddress(addr string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(addr)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
