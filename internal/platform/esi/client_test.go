package esi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

type staticTokens string

func (s staticTokens) Token(ctx context.Context, characterID int64) (string, error) {
	return string(s), nil
}

func orderJSON(id int64, remain int64) string {
	return fmt.Sprintf(`{
		"duration": 30,
		"is_buy_order": false,
		"issued": "2026-09-01T10:00:00Z",
		"location_id": 1001,
		"min_volume": 1,
		"order_id": %d,
		"price": 10.5,
		"range": "station",
		"type_id": 34,
		"volume_remain": %d,
		"volume_total": 100
	}`, id, remain)
}

func TestOrdersSinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization header = %q", got)
		}
		if r.URL.Path != "/markets/structures/1001/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("X-Pages", "1")
		fmt.Fprintf(w, "[%s]", orderJSON(1, 40))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"))
	orders, err := c.Orders(context.Background(), 9, 1001, false)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	o := orders[0]
	if o.OrderID != 1 || o.TypeID != 34 || o.IsBuy || o.VolumeRemain != 40 {
		t.Errorf("unexpected order: %+v", o)
	}
	if want := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC); !o.Issued.Equal(want) {
		t.Errorf("issued = %s, want %s", o.Issued, want)
	}
}

func TestOrdersFollowsPagination(t *testing.T) {
	const pages = 3
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 || page > pages {
			t.Errorf("unexpected page %d", page)
		}
		w.Header().Set("X-Pages", strconv.Itoa(pages))
		fmt.Fprintf(w, "[%s]", orderJSON(int64(page), 10))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"), WithConcurrency(2))
	orders, err := c.Orders(context.Background(), 9, 1001, false)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(orders) != pages {
		t.Fatalf("expected %d orders, got %d", pages, len(orders))
	}
	// Results assemble in page order regardless of fetch completion order.
	for i, o := range orders {
		if o.OrderID != int64(i+1) {
			t.Errorf("orders[%d].OrderID = %d, want %d", i, o.OrderID, i+1)
		}
	}
}

func TestOrdersFailedPageFailsWholeCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("X-Pages", "3")
		if page == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, "[%s]", orderJSON(int64(page), 10))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"))
	_, err := c.Orders(context.Background(), 9, 1001, false)
	if err == nil {
		t.Fatal("expected error when one page fails")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apiErr.StatusCode)
	}
}

func TestOrdersRejectsMalformedOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pages", "1")
		// price 0 fails validation.
		fmt.Fprint(w, `[{
			"duration": 30,
			"is_buy_order": false,
			"issued": "2026-09-01T10:00:00Z",
			"min_volume": 1,
			"order_id": 1,
			"price": 0,
			"range": "station",
			"type_id": 34,
			"volume_remain": 40,
			"volume_total": 100
		}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"))
	if _, err := c.Orders(context.Background(), 9, 1001, false); err == nil {
		t.Fatal("expected validation error for zero price")
	}
}

func TestOrdersForceRefreshHeader(t *testing.T) {
	var sawNoCache bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawNoCache = r.Header.Get("Cache-Control") == "no-cache"
		w.Header().Set("X-Pages", "1")
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticTokens("tok"))
	if _, err := c.Orders(context.Background(), 9, 1001, true); err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if !sawNoCache {
		t.Error("force refresh did not send Cache-Control: no-cache")
	}
}
