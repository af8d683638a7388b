package estimator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

var (
	t0 = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(30 * time.Minute)
)

func order(id int64, typeID int32, isBuy bool, price string, remain, total int64, issued time.Time, durationDays int) domain.Order {
	return domain.Order{
		OrderID:      id,
		TypeID:       typeID,
		IsBuy:        isBuy,
		Price:        decimal.RequireFromString(price),
		VolumeRemain: remain,
		VolumeTotal:  total,
		Issued:       issued,
		Duration:     durationDays,
	}
}

func snapshot(observed time.Time, orders ...domain.Order) domain.Snapshot {
	return domain.Snapshot{StructureID: 1001, ObservedAt: observed, Orders: orders}
}

func TestDiffQuantityDecrease(t *testing.T) {
	est := New(10*time.Minute, nil)

	prev := snapshot(t0, order(1, 34, false, "10", 100, 100, t0.Add(-time.Hour), 30))
	curr := snapshot(t1, order(1, 34, false, "10", 40, 100, t0.Add(-time.Hour), 30))

	res := est.Diff(prev, curr)
	if res.Unchanged {
		t.Fatal("expected changed result")
	}
	if len(res.Deltas) != 2 {
		t.Fatalf("expected 2 deltas (both bound modes), got %d", len(res.Deltas))
	}

	seen := map[bool]bool{}
	for _, d := range res.Deltas {
		seen[d.Liberal] = true
		if d.Amount != 60 {
			t.Errorf("liberal=%v: amount = %d, want 60", d.Liberal, d.Amount)
		}
		if !d.Price.Equal(decimal.RequireFromString("10")) {
			t.Errorf("liberal=%v: price = %s, want 10", d.Liberal, d.Price)
		}
		if d.OrderCount != 1 {
			t.Errorf("liberal=%v: order count = %d, want 1", d.Liberal, d.OrderCount)
		}
		if d.TypeID != 34 || d.IsBuy {
			t.Errorf("liberal=%v: key = type %d buy %v, want type 34 sell", d.Liberal, d.TypeID, d.IsBuy)
		}
	}
	if !seen[false] || !seen[true] {
		t.Errorf("expected one conservative and one liberal delta, got %v", seen)
	}
}

func TestDiffPriceChangeUsesPreviousPrice(t *testing.T) {
	est := New(10*time.Minute, nil)

	prev := snapshot(t0, order(1, 34, false, "10", 100, 100, t0.Add(-time.Hour), 30))
	curr := snapshot(t1, order(1, 34, false, "9.5", 70, 100, t0.Add(-time.Hour), 30))

	res := est.Diff(prev, curr)
	if len(res.Deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(res.Deltas))
	}
	for _, d := range res.Deltas {
		if !d.Price.Equal(decimal.RequireFromString("10")) {
			t.Errorf("price = %s, want previous price 10", d.Price)
		}
		if d.Amount != 30 {
			t.Errorf("amount = %d, want 30", d.Amount)
		}
	}
}

func TestDiffDisappearedNearExpirySuppressed(t *testing.T) {
	est := New(10*time.Minute, nil)

	// Issued so that the natural expiry lands inside [t0, t1].
	issued := t0.Add(15 * time.Minute).AddDate(0, 0, -30)
	prev := snapshot(t0, order(1, 34, false, "10", 100, 100, issued, 30))
	curr := snapshot(t1)

	res := est.Diff(prev, curr)
	if len(res.Deltas) != 0 {
		t.Fatalf("expected no deltas for likely-expired order, got %d", len(res.Deltas))
	}
}

func TestDiffDisappearedNearExpiryWithinWindow(t *testing.T) {
	est := New(10*time.Minute, nil)

	// Expiry 5 minutes after the current observation: inside the tolerance
	// window, so still attributed to expiry.
	issued := t1.Add(5 * time.Minute).AddDate(0, 0, -30)
	prev := snapshot(t0, order(1, 34, false, "10", 100, 100, issued, 30))
	curr := snapshot(t1)

	if res := est.Diff(prev, curr); len(res.Deltas) != 0 {
		t.Fatalf("expected no deltas inside tolerance window, got %d", len(res.Deltas))
	}
}

func TestDiffDisappearedFarFromExpiry(t *testing.T) {
	est := New(10*time.Minute, nil)

	// Expires in 20 days; disappearance must be treated as a fill.
	prev := snapshot(t0, order(1, 34, true, "5", 80, 100, t0.AddDate(0, 0, -10), 30))
	curr := snapshot(t1)

	res := est.Diff(prev, curr)
	if len(res.Deltas) != 1 {
		t.Fatalf("expected 1 liberal delta, got %d", len(res.Deltas))
	}
	d := res.Deltas[0]
	if !d.Liberal {
		t.Error("disappearance delta must be liberal-only")
	}
	if d.Amount != 80 {
		t.Errorf("amount = %d, want full remaining 80", d.Amount)
	}
	if !d.IsBuy {
		t.Error("expected buy-side delta")
	}
}

func TestDiffUnchangedFastPath(t *testing.T) {
	est := New(10*time.Minute, nil)

	issued := t0.Add(-time.Hour)
	prev := snapshot(t0,
		order(1, 34, false, "10", 100, 100, issued, 30),
		order(2, 35, true, "3.25", 50, 200, issued, 90),
	)
	curr := snapshot(t1,
		order(2, 35, true, "3.25", 50, 200, issued, 90),
		order(1, 34, false, "10", 100, 100, issued, 30),
	)

	res := est.Diff(prev, curr)
	if !res.Unchanged {
		t.Error("expected unchanged fast path")
	}
	if len(res.Deltas) != 0 {
		t.Errorf("unchanged diff produced %d deltas", len(res.Deltas))
	}
}

func TestDiffNewOrderProducesNothing(t *testing.T) {
	est := New(10*time.Minute, nil)

	prev := snapshot(t0)
	curr := snapshot(t1, order(1, 34, false, "10", 100, 100, t1.Add(-time.Minute), 30))

	res := est.Diff(prev, curr)
	if res.Unchanged {
		t.Error("new order must not report unchanged")
	}
	if len(res.Deltas) != 0 {
		t.Errorf("new order produced %d deltas, want 0", len(res.Deltas))
	}
}

func TestDiffQuantityIncreaseIgnored(t *testing.T) {
	est := New(10*time.Minute, nil)

	issued := t0.Add(-time.Hour)
	prev := snapshot(t0, order(1, 34, false, "10", 40, 100, issued, 30))
	curr := snapshot(t1, order(1, 34, false, "10", 90, 100, issued, 30))

	res := est.Diff(prev, curr)
	if len(res.Deltas) != 0 {
		t.Errorf("quantity increase produced %d deltas, want 0", len(res.Deltas))
	}
}

func TestDiffDefensiveSkips(t *testing.T) {
	est := New(10*time.Minute, nil)

	t.Run("non-positive remaining volume", func(t *testing.T) {
		prev := snapshot(t0, order(1, 34, false, "10", 0, 100, t0.Add(-time.Hour), 30))
		curr := snapshot(t1)
		if res := est.Diff(prev, curr); len(res.Deltas) != 0 {
			t.Errorf("got %d deltas, want 0", len(res.Deltas))
		}
	})

	t.Run("non-positive duration on disappearance", func(t *testing.T) {
		prev := snapshot(t0, order(1, 34, false, "10", 100, 100, t0.Add(-time.Hour), 0))
		curr := snapshot(t1)
		if res := est.Diff(prev, curr); len(res.Deltas) != 0 {
			t.Errorf("got %d deltas, want 0", len(res.Deltas))
		}
	})

	t.Run("negative current remaining volume", func(t *testing.T) {
		// A negative current remainder must not inflate the fill beyond the
		// previous remaining.
		prev := snapshot(t0, order(1, 34, false, "10", 100, 100, t0.Add(-time.Hour), 30))
		curr := snapshot(t1, order(1, 34, false, "10", -5, 100, t0.Add(-time.Hour), 30))
		if res := est.Diff(prev, curr); len(res.Deltas) != 0 {
			t.Errorf("got %d deltas, want 0", len(res.Deltas))
		}
	})
}
