// Package domain defines the core value types of the market watcher: orders,
// snapshots, trade deltas, and daily aggregates, plus the store and cache
// interfaces implemented by the infrastructure packages.
package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single resting market order as observed at one poll. Orders are
// immutable value objects; every poll yields a fresh Order per id.
type Order struct {
	OrderID      int64           `json:"order_id"`
	TypeID       int32           `json:"type_id"`
	IsBuy        bool            `json:"is_buy"`
	Price        decimal.Decimal `json:"price"`
	VolumeRemain int64           `json:"volume_remain"`
	VolumeTotal  int64           `json:"volume_total"`
	Issued       time.Time       `json:"issued"`
	Duration     int             `json:"duration"` // days until natural expiry
	MinVolume    int64           `json:"min_volume"`
	Range        string          `json:"range"`
}

// ExpiresAt returns the order's natural expiry instant.
func (o Order) ExpiresAt() time.Time {
	return o.Issued.AddDate(0, 0, o.Duration)
}

// Snapshot is the complete order set for one structure at one observation
// instant. Exactly one latest snapshot per structure is retained; it is
// replaced (or timestamp-touched) on every successful collection pass.
type Snapshot struct {
	StructureID int64     `json:"structure_id"`
	ObservedAt  time.Time `json:"observed_at"`
	Orders      []Order   `json:"orders"`
}

// OrderFilter narrows a snapshot's order list. TypeID zero matches all items;
// IsBuy nil matches both sides; Limit zero means no limit.
type OrderFilter struct {
	TypeID int32
	IsBuy  *bool
	Limit  int
}

// Filter returns the snapshot orders matching f, preserving order.
func (s Snapshot) Filter(f OrderFilter) []Order {
	out := make([]Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if f.TypeID != 0 && o.TypeID != f.TypeID {
			continue
		}
		if f.IsBuy != nil && o.IsBuy != *f.IsBuy {
			continue
		}
		out = append(out, o)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// ItemSummary condenses one item's orders within a snapshot: best bid/ask and
// per-side order and volume counts.
type ItemSummary struct {
	TypeID     int32           `json:"type_id"`
	BestBid    decimal.Decimal `json:"best_bid"`
	BestAsk    decimal.Decimal `json:"best_ask"`
	BuyOrders  int             `json:"buy_orders"`
	SellOrders int             `json:"sell_orders"`
	BuyVolume  int64           `json:"buy_volume"`
	SellVolume int64           `json:"sell_volume"`
}

// Summarize folds the snapshot into per-item summaries, sorted by type id.
// Best bid is the highest buy price; best ask the lowest sell price. Items
// with no orders on a side report a zero price for that side.
func (s Snapshot) Summarize() []ItemSummary {
	byType := make(map[int32]*ItemSummary)
	for _, o := range s.Orders {
		sum, ok := byType[o.TypeID]
		if !ok {
			sum = &ItemSummary{TypeID: o.TypeID}
			byType[o.TypeID] = sum
		}
		if o.IsBuy {
			sum.BuyOrders++
			sum.BuyVolume += o.VolumeRemain
			if sum.BestBid.IsZero() || o.Price.GreaterThan(sum.BestBid) {
				sum.BestBid = o.Price
			}
		} else {
			sum.SellOrders++
			sum.SellVolume += o.VolumeRemain
			if sum.BestAsk.IsZero() || o.Price.LessThan(sum.BestAsk) {
				sum.BestAsk = o.Price
			}
		}
	}

	out := make([]ItemSummary, 0, len(byType))
	for _, sum := range byType {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out
}
