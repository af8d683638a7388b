package esi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// structureOrder is the wire shape of one order in a structure market page.
type structureOrder struct {
	Duration     int             `json:"duration"`
	IsBuyOrder   bool            `json:"is_buy_order"`
	Issued       time.Time       `json:"issued"`
	LocationID   int64           `json:"location_id"`
	MinVolume    int64           `json:"min_volume"`
	OrderID      int64           `json:"order_id"`
	Price        decimal.Decimal `json:"price"`
	Range        string          `json:"range"`
	TypeID       int32           `json:"type_id"`
	VolumeRemain int64           `json:"volume_remain"`
	VolumeTotal  int64           `json:"volume_total"`
}

// toDomain validates the wire order and converts it. The fetcher is strict:
// a malformed order fails the whole page, because a silently shortened
// snapshot would corrupt the next diff.
func (o structureOrder) toDomain() (domain.Order, error) {
	if o.OrderID <= 0 {
		return domain.Order{}, fmt.Errorf("order has invalid id %d", o.OrderID)
	}
	if o.TypeID <= 0 {
		return domain.Order{}, fmt.Errorf("order %d has invalid type id %d", o.OrderID, o.TypeID)
	}
	if o.Price.Sign() <= 0 {
		return domain.Order{}, fmt.Errorf("order %d has non-positive price %s", o.OrderID, o.Price)
	}
	if o.VolumeRemain < 0 || o.VolumeTotal < 0 {
		return domain.Order{}, fmt.Errorf("order %d has negative volume", o.OrderID)
	}
	if o.Issued.IsZero() {
		return domain.Order{}, fmt.Errorf("order %d has no issued timestamp", o.OrderID)
	}
	return domain.Order{
		OrderID:      o.OrderID,
		TypeID:       o.TypeID,
		IsBuy:        o.IsBuyOrder,
		Price:        o.Price,
		VolumeRemain: o.VolumeRemain,
		VolumeTotal:  o.VolumeTotal,
		Issued:       o.Issued,
		Duration:     o.Duration,
		MinVolume:    o.MinVolume,
		Range:        o.Range,
	}, nil
}
