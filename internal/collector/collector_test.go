package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/estimator"
)

type fakeFetcher struct {
	orders []domain.Order
	err    error
}

func (f *fakeFetcher) FetchOrders(ctx context.Context, structureID int64, forceRefresh bool) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

// memStore backs both SnapshotStore and PassStore so committed snapshots
// become the next pass's baseline, the way the database behaves.
type memStore struct {
	snap    *domain.Snapshot
	commits []commit
}

type commit struct {
	snap      domain.Snapshot
	rows      []domain.AggregateRow
	unchanged bool
}

func (m *memStore) Latest(ctx context.Context, structureID int64) (domain.Snapshot, error) {
	if m.snap == nil {
		return domain.Snapshot{}, domain.ErrNotFound
	}
	return *m.snap, nil
}

func (m *memStore) CommitPass(ctx context.Context, snap domain.Snapshot, rows []domain.AggregateRow, unchanged bool) error {
	m.commits = append(m.commits, commit{snap: snap, rows: rows, unchanged: unchanged})
	if !unchanged {
		s := snap
		m.snap = &s
	} else if m.snap != nil {
		m.snap.ObservedAt = snap.ObservedAt
	}
	return nil
}

func newTestCollector(fetcher OrderFetcher, store *memStore) *Collector {
	return New(DefaultConfig(), fetcher, estimator.New(10*time.Minute, nil), store, store, nil)
}

func TestCollectOnceFullCycle(t *testing.T) {
	t0 := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(30 * time.Minute)

	sell := domain.Order{
		OrderID:      1,
		TypeID:       34,
		IsBuy:        false,
		Price:        decimal.RequireFromString("10"),
		VolumeRemain: 100,
		VolumeTotal:  100,
		Issued:       t0,
		Duration:     30,
	}

	store := &memStore{}
	fetcher := &fakeFetcher{orders: []domain.Order{sell}}
	col := newTestCollector(fetcher, store)

	// First pass establishes the baseline; new orders produce no deltas.
	res, err := col.CollectOnce(context.Background(), 1001, domain.CollectOptions{ObservedAt: t0})
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if res.OrderCount != 1 || res.AggregateKeyCount != 0 || res.Unchanged {
		t.Fatalf("first pass result = %+v", res)
	}

	// Second pass: the order is gone, 20 days before expiry. The full
	// remainder is a liberal-only fill at the last known price.
	fetcher.orders = nil
	res, err = col.CollectOnce(context.Background(), 1001, domain.CollectOptions{ObservedAt: t1})
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if res.AggregateKeyCount != 1 {
		t.Fatalf("expected 1 aggregate key, got %d", res.AggregateKeyCount)
	}

	last := store.commits[len(store.commits)-1]
	if last.unchanged {
		t.Error("second pass must not take the fast path")
	}
	if len(last.rows) != 1 {
		t.Fatalf("expected 1 committed row, got %d", len(last.rows))
	}
	row := last.rows[0]
	if !row.Liberal {
		t.Error("disappearance row must be liberal")
	}
	if row.Amount != 100 || row.OrderCount != 1 {
		t.Errorf("amount/orders = %d/%d, want 100/1", row.Amount, row.OrderCount)
	}
	if want := decimal.RequireFromString("1000"); !row.Value.Equal(want) {
		t.Errorf("value = %s, want %s", row.Value, want)
	}
	ten := decimal.RequireFromString("10")
	if !row.High.Equal(ten) || !row.Low.Equal(ten) || !row.Average.Equal(ten) {
		t.Errorf("high/low/average = %s/%s/%s, want all 10", row.High, row.Low, row.Average)
	}
	if !row.Day.Equal(domain.DayOf(t1)) {
		t.Errorf("day = %s, want %s", row.Day, domain.DayOf(t1))
	}
}

func TestCollectOnceFastPath(t *testing.T) {
	t0 := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	sell := domain.Order{
		OrderID:      1,
		TypeID:       34,
		Price:        decimal.RequireFromString("10"),
		VolumeRemain: 100,
		VolumeTotal:  100,
		Issued:       t0,
		Duration:     30,
	}

	store := &memStore{}
	fetcher := &fakeFetcher{orders: []domain.Order{sell}}
	col := newTestCollector(fetcher, store)

	if _, err := col.CollectOnce(context.Background(), 1001, domain.CollectOptions{ObservedAt: t0}); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	t1 := t0.Add(15 * time.Minute)
	res, err := col.CollectOnce(context.Background(), 1001, domain.CollectOptions{ObservedAt: t1})
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !res.Unchanged {
		t.Error("identical order set must take the fast path")
	}
	if res.AggregateKeyCount != 0 {
		t.Errorf("fast path produced %d aggregate keys", res.AggregateKeyCount)
	}

	last := store.commits[len(store.commits)-1]
	if !last.unchanged || len(last.rows) != 0 {
		t.Errorf("fast-path commit = unchanged %v with %d rows", last.unchanged, len(last.rows))
	}
	if !store.snap.ObservedAt.Equal(t1) {
		t.Errorf("observed_at not advanced: %s", store.snap.ObservedAt)
	}
}

func TestCollectOnceFetchErrorTagged(t *testing.T) {
	store := &memStore{}
	fetcher := &fakeFetcher{err: errors.New("connect refused")}
	col := newTestCollector(fetcher, store)

	_, err := col.CollectOnce(context.Background(), 1001, domain.CollectOptions{})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("fetch failure not tagged as upstream: %v", err)
	}
	if len(store.commits) != 0 {
		t.Error("failed pass must not commit")
	}
}

func TestCollectOnceConfigErrorNotUpstream(t *testing.T) {
	store := &memStore{}
	fetcher := &fakeFetcher{err: domain.ErrMissingRefreshToken}
	col := newTestCollector(fetcher, store)

	_, err := col.CollectOnce(context.Background(), 1001, domain.CollectOptions{})
	if !domain.IsConfigError(err) {
		t.Errorf("expected config error, got: %v", err)
	}
	if errors.Is(err, domain.ErrUpstream) {
		t.Error("config error must not be tagged as upstream")
	}
}
