package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregateKey identifies one daily accumulator bucket. Liberal false is the
// conservative (lower-bound) estimate counting only confirmed quantity
// reductions; Liberal true additionally counts disappearances not classified
// as expiry. The two modes intentionally double-count the same physical fill.
type AggregateKey struct {
	Day         time.Time `json:"day"` // UTC midnight
	StructureID int64     `json:"structure_id"`
	TypeID      int32     `json:"type_id"`
	IsBuy       bool      `json:"is_buy"`
	Liberal     bool      `json:"liberal"`
}

// TradeDelta is one inferred trade contribution produced by the estimator.
// Amount is always positive.
type TradeDelta struct {
	Day         time.Time
	StructureID int64
	TypeID      int32
	IsBuy       bool
	Liberal     bool
	Amount      int64
	OrderCount  int64
	Price       decimal.Decimal // price in effect at the time of the fill
}

// Key returns the aggregate bucket this delta contributes to.
func (d TradeDelta) Key() AggregateKey {
	return AggregateKey{
		Day:         d.Day,
		StructureID: d.StructureID,
		TypeID:      d.TypeID,
		IsBuy:       d.IsBuy,
		Liberal:     d.Liberal,
	}
}

// AggregateRow holds the accumulated statistics for one AggregateKey. Rows
// only ever accumulate; the engine never decrements them.
type AggregateRow struct {
	AggregateKey
	Amount     int64           `json:"amount"`
	OrderCount int64           `json:"order_count"`
	Value      decimal.Decimal `json:"value"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Average    decimal.Decimal `json:"average"` // Value / Amount, zero when Amount is zero
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
