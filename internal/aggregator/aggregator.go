// Package aggregator folds estimator deltas into per-key accumulators for the
// duration of one collection pass, so a pass touching many orders of the same
// item produces one merge write per aggregate key instead of one per order.
package aggregator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// Aggregator accumulates trade deltas in memory, keyed by AggregateKey.
// It is not safe for concurrent use; each pass owns its own instance.
type Aggregator struct {
	rows map[domain.AggregateKey]*domain.AggregateRow
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{rows: make(map[domain.AggregateKey]*domain.AggregateRow)}
}

// Add folds one delta into its accumulator. Deltas with a non-positive
// amount are ignored; the estimator never produces them.
func (a *Aggregator) Add(d domain.TradeDelta) {
	if d.Amount <= 0 {
		return
	}
	value := d.Price.Mul(decimal.NewFromInt(d.Amount))

	key := d.Key()
	row, ok := a.rows[key]
	if !ok {
		a.rows[key] = &domain.AggregateRow{
			AggregateKey: key,
			Amount:       d.Amount,
			OrderCount:   d.OrderCount,
			Value:        value,
			High:         d.Price,
			Low:          d.Price,
		}
		return
	}

	row.Amount += d.Amount
	row.OrderCount += d.OrderCount
	row.Value = row.Value.Add(value)
	if d.Price.GreaterThan(row.High) {
		row.High = d.Price
	}
	if d.Price.LessThan(row.Low) {
		row.Low = d.Price
	}
}

// AddAll folds a batch of deltas.
func (a *Aggregator) AddAll(deltas []domain.TradeDelta) {
	for _, d := range deltas {
		a.Add(d)
	}
}

// Len returns the number of distinct aggregate keys accumulated so far.
func (a *Aggregator) Len() int {
	return len(a.rows)
}

// Rows finalizes the accumulators: it derives each row's average price and
// returns the rows in a deterministic order for flushing.
func (a *Aggregator) Rows() []domain.AggregateRow {
	out := make([]domain.AggregateRow, 0, len(a.rows))
	for _, row := range a.rows {
		r := *row
		if r.Amount > 0 {
			r.Average = r.Value.Div(decimal.NewFromInt(r.Amount))
		} else {
			r.Average = decimal.Zero
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].AggregateKey, out[j].AggregateKey
		if !a.Day.Equal(b.Day) {
			return a.Day.Before(b.Day)
		}
		if a.StructureID != b.StructureID {
			return a.StructureID < b.StructureID
		}
		if a.TypeID != b.TypeID {
			return a.TypeID < b.TypeID
		}
		if a.IsBuy != b.IsBuy {
			return !a.IsBuy
		}
		return !a.Liberal && b.Liberal
	})
	return out
}
