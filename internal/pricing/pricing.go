package pricing

import "app/internal/domain/model"

// 配送料ポリシー。店ごとに方針が変わるので差し替え可能にしておく。
type Policy interface {
	DeliveryFee(t model.DeliveryType, itemsTotal int64) int64
}

// 配送料なし
type FreeDelivery struct{}

func (FreeDelivery) DeliveryFee(model.DeliveryType, int64) int64 { return 0 }

// 一定額未満の宅配だけ固定手数料。引き取りは常に無料。
type ThresholdSurcharge struct {
	Fee     int64
	WaiveAt int64
}

func (p ThresholdSurcharge) DeliveryFee(t model.DeliveryType, itemsTotal int64) int64 {
	if t != model.DeliveryCourier {
		return 0
	}
	if p.WaiveAt > 0 && itemsTotal >= p.WaiveAt {
		return 0
	}
	return p.Fee
}
