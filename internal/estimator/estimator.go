// Package estimator infers executed trades from consecutive order-book
// snapshots. The venue exposes no trade feed, so fills are reconstructed by
// diffing: quantity decreases on matched orders are confirmed fills, while
// disappeared orders are either natural expirations or fills depending on
// whether their expiry time coincides with the observation gap.
package estimator

import (
	"log/slog"
	"time"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// Estimator diffs a previous and current snapshot into trade deltas.
type Estimator struct {
	// window is the tolerance around the observation interval within which a
	// disappeared order's expiry time is attributed to natural expiration
	// rather than a fill. Too small falsely counts expirations as fills; too
	// large swallows real fills as expiry.
	window time.Duration
	logger *slog.Logger
}

// New creates an Estimator with the given expiry-tolerance window.
func New(window time.Duration, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{window: window, logger: logger}
}

// Result is the outcome of diffing two snapshots.
type Result struct {
	Deltas []domain.TradeDelta
	// Unchanged is true when every order relevant to diffing is identical in
	// both snapshots. Callers use it to skip the snapshot rewrite.
	Unchanged bool
}

// Diff compares prev and curr and produces trade deltas. Confirmed partial
// fills are emitted in both bound modes at the previous price; disappeared
// orders not classified as expired are emitted liberal-only for their full
// remaining quantity. Orders new in curr produce nothing; they are the
// baseline for the next pass.
func (e *Estimator) Diff(prev, curr domain.Snapshot) Result {
	prevByID := indexByID(prev.Orders)
	currByID := indexByID(curr.Orders)

	if unchanged(prevByID, currByID) {
		return Result{Unchanged: true}
	}

	day := domain.DayOf(curr.ObservedAt)
	var deltas []domain.TradeDelta

	for id, po := range prevByID {
		if po.VolumeRemain <= 0 {
			// Bogus upstream data; do not let one bad order poison the pass.
			e.logger.Warn("skipping order with non-positive remaining volume",
				slog.Int64("order_id", id),
				slog.Int64("volume_remain", po.VolumeRemain),
			)
			continue
		}

		co, present := currByID[id]
		if present {
			if co.VolumeRemain < 0 {
				// A negative current remainder would inflate the fill past
				// the previous remaining.
				e.logger.Warn("skipping order with negative remaining volume",
					slog.Int64("order_id", id),
					slog.Int64("volume_remain", co.VolumeRemain),
				)
				continue
			}
			filled := po.VolumeRemain - co.VolumeRemain
			if filled <= 0 {
				continue
			}
			// Confirmed fill: count it in both bound modes at the price in
			// effect when the quantity was still resting.
			for _, liberal := range [2]bool{false, true} {
				deltas = append(deltas, domain.TradeDelta{
					Day:         day,
					StructureID: curr.StructureID,
					TypeID:      po.TypeID,
					IsBuy:       po.IsBuy,
					Liberal:     liberal,
					Amount:      filled,
					OrderCount:  1,
					Price:       po.Price,
				})
			}
			continue
		}

		if e.likelyExpired(po, prev.ObservedAt, curr.ObservedAt) {
			continue
		}

		// Disappeared before its natural expiry: assume the remainder filled
		// at the last known price. Upper-bound only.
		deltas = append(deltas, domain.TradeDelta{
			Day:         day,
			StructureID: curr.StructureID,
			TypeID:      po.TypeID,
			IsBuy:       po.IsBuy,
			Liberal:     true,
			Amount:      po.VolumeRemain,
			OrderCount:  1,
			Price:       po.Price,
		})
	}

	return Result{Deltas: deltas}
}

// likelyExpired reports whether the order's natural expiry falls within the
// observation interval widened by the tolerance window on both ends. Orders
// with a non-positive duration cannot be classified and are treated as
// expired rather than inflating the liberal estimate with garbage.
func (e *Estimator) likelyExpired(o domain.Order, prevObserved, currObserved time.Time) bool {
	if o.Duration <= 0 {
		e.logger.Warn("skipping disappeared order with non-positive duration",
			slog.Int64("order_id", o.OrderID),
			slog.Int("duration", o.Duration),
		)
		return true
	}
	expiresAt := o.ExpiresAt()
	return !expiresAt.Before(prevObserved.Add(-e.window)) &&
		!expiresAt.After(currObserved.Add(e.window))
}

func indexByID(orders []domain.Order) map[int64]domain.Order {
	m := make(map[int64]domain.Order, len(orders))
	for _, o := range orders {
		m[o.OrderID] = o
	}
	return m
}

// unchanged reports whether the two indexed order sets are identical in every
// field that matters for diffing. It lets an idle poll skip delta
// construction and the snapshot rewrite entirely.
func unchanged(prev, curr map[int64]domain.Order) bool {
	if len(prev) != len(curr) {
		return false
	}
	for id, po := range prev {
		co, ok := curr[id]
		if !ok {
			return false
		}
		if po.VolumeRemain != co.VolumeRemain ||
			po.VolumeTotal != co.VolumeTotal ||
			po.IsBuy != co.IsBuy ||
			po.TypeID != co.TypeID ||
			!po.Price.Equal(co.Price) {
			return false
		}
	}
	return true
}
