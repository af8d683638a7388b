package aggregator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

var day = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func delta(typeID int32, isBuy, liberal bool, amount int64, price string) domain.TradeDelta {
	return domain.TradeDelta{
		Day:         day,
		StructureID: 1001,
		TypeID:      typeID,
		IsBuy:       isBuy,
		Liberal:     liberal,
		Amount:      amount,
		OrderCount:  1,
		Price:       decimal.RequireFromString(price),
	}
}

func TestAddSeedsRow(t *testing.T) {
	agg := New()
	agg.Add(delta(34, false, true, 60, "10"))

	rows := agg.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Amount != 60 || r.OrderCount != 1 {
		t.Errorf("amount/orders = %d/%d, want 60/1", r.Amount, r.OrderCount)
	}
	if want := decimal.RequireFromString("600"); !r.Value.Equal(want) {
		t.Errorf("value = %s, want %s", r.Value, want)
	}
	if !r.High.Equal(r.Low) || !r.High.Equal(decimal.RequireFromString("10")) {
		t.Errorf("high/low = %s/%s, want both 10", r.High, r.Low)
	}
	if !r.Average.Equal(decimal.RequireFromString("10")) {
		t.Errorf("average = %s, want 10", r.Average)
	}
}

func TestAddMergesSameKey(t *testing.T) {
	agg := New()
	agg.AddAll([]domain.TradeDelta{
		delta(34, false, true, 10, "8"),
		delta(34, false, true, 30, "12"),
	})

	rows := agg.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 merged row, got %d", len(rows))
	}
	r := rows[0]
	if r.Amount != 40 || r.OrderCount != 2 {
		t.Errorf("amount/orders = %d/%d, want 40/2", r.Amount, r.OrderCount)
	}
	if want := decimal.RequireFromString("440"); !r.Value.Equal(want) {
		t.Errorf("value = %s, want %s", r.Value, want)
	}
	if !r.High.Equal(decimal.RequireFromString("12")) {
		t.Errorf("high = %s, want 12", r.High)
	}
	if !r.Low.Equal(decimal.RequireFromString("8")) {
		t.Errorf("low = %s, want 8", r.Low)
	}
	// Quantity-weighted: 440 / 40 = 11, not the midpoint of 8 and 12.
	if !r.Average.Equal(decimal.RequireFromString("11")) {
		t.Errorf("average = %s, want 11", r.Average)
	}
}

func TestKeysStayDistinct(t *testing.T) {
	agg := New()
	agg.AddAll([]domain.TradeDelta{
		delta(34, false, false, 10, "10"),
		delta(34, false, true, 10, "10"),
		delta(34, true, true, 10, "10"),
		delta(35, false, true, 10, "10"),
	})

	if agg.Len() != 4 {
		t.Errorf("expected 4 distinct keys, got %d", agg.Len())
	}
}

func TestNonPositiveAmountIgnored(t *testing.T) {
	agg := New()
	agg.Add(delta(34, false, true, 0, "10"))
	agg.Add(delta(34, false, true, -5, "10"))

	if agg.Len() != 0 {
		t.Errorf("expected no rows, got %d", agg.Len())
	}
}

func TestRowsDeterministicOrder(t *testing.T) {
	build := func() []domain.AggregateRow {
		agg := New()
		agg.AddAll([]domain.TradeDelta{
			delta(35, true, true, 1, "1"),
			delta(34, false, true, 1, "1"),
			delta(34, false, false, 1, "1"),
			delta(34, true, false, 1, "1"),
		})
		return agg.Rows()
	}

	first := build()
	for i := 0; i < 5; i++ {
		again := build()
		for j := range first {
			if first[j].AggregateKey != again[j].AggregateKey {
				t.Fatalf("row order not deterministic at index %d", j)
			}
		}
	}

	// Sells sort before buys within a type, conservative before liberal.
	if first[0].TypeID != 34 || first[0].IsBuy || first[0].Liberal {
		t.Errorf("unexpected first key: %+v", first[0].AggregateKey)
	}
}
