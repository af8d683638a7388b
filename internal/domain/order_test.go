package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderExpiresAt(t *testing.T) {
	issued := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	o := Order{Issued: issued, Duration: 90}

	if want := issued.AddDate(0, 0, 90); !o.ExpiresAt().Equal(want) {
		t.Errorf("ExpiresAt = %s, want %s", o.ExpiresAt(), want)
	}
}

func TestSnapshotFilter(t *testing.T) {
	isBuy := true
	snap := Snapshot{Orders: []Order{
		{OrderID: 1, TypeID: 34, IsBuy: false},
		{OrderID: 2, TypeID: 34, IsBuy: true},
		{OrderID: 3, TypeID: 35, IsBuy: true},
		{OrderID: 4, TypeID: 34, IsBuy: true},
	}}

	got := snap.Filter(OrderFilter{TypeID: 34, IsBuy: &isBuy, Limit: 1})
	if len(got) != 1 || got[0].OrderID != 2 {
		t.Errorf("filter result = %+v", got)
	}

	if all := snap.Filter(OrderFilter{}); len(all) != 4 {
		t.Errorf("empty filter returned %d orders", len(all))
	}
}

func TestSnapshotSummarize(t *testing.T) {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	snap := Snapshot{Orders: []Order{
		{OrderID: 1, TypeID: 34, IsBuy: true, Price: price("9"), VolumeRemain: 10},
		{OrderID: 2, TypeID: 34, IsBuy: true, Price: price("9.5"), VolumeRemain: 5},
		{OrderID: 3, TypeID: 34, IsBuy: false, Price: price("10.5"), VolumeRemain: 20},
		{OrderID: 4, TypeID: 34, IsBuy: false, Price: price("11"), VolumeRemain: 8},
		{OrderID: 5, TypeID: 36, IsBuy: false, Price: price("100"), VolumeRemain: 1},
	}}

	items := snap.Summarize()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].TypeID != 34 || items[1].TypeID != 36 {
		t.Errorf("items not sorted by type: %d, %d", items[0].TypeID, items[1].TypeID)
	}

	tritanium := items[0]
	if !tritanium.BestBid.Equal(price("9.5")) {
		t.Errorf("best bid = %s, want 9.5", tritanium.BestBid)
	}
	if !tritanium.BestAsk.Equal(price("10.5")) {
		t.Errorf("best ask = %s, want 10.5", tritanium.BestAsk)
	}
	if tritanium.BuyOrders != 2 || tritanium.SellOrders != 2 {
		t.Errorf("order counts = %d/%d", tritanium.BuyOrders, tritanium.SellOrders)
	}
	if tritanium.BuyVolume != 15 || tritanium.SellVolume != 28 {
		t.Errorf("volumes = %d/%d", tritanium.BuyVolume, tritanium.SellVolume)
	}

	// No buy orders on the second item: zero bid.
	if !items[1].BestBid.IsZero() {
		t.Errorf("best bid for one-sided item = %s, want 0", items[1].BestBid)
	}
}
