// Package esi is the REST client for the structure-market endpoint. The API
// exposes only point-in-time snapshots of resting orders, paginated, with the
// total page count carried out of band in the X-Pages response header.
package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// pagesHeader carries the total page count on every page response.
const pagesHeader = "X-Pages"

// Client fetches structure market orders with bearer authentication.
type Client struct {
	baseURL     string
	tokens      domain.TokenSource
	httpClient  *http.Client
	logger      *slog.Logger
	concurrency int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithConcurrency bounds how many pages beyond the first are fetched at once.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a structure-market client rooted at baseURL.
func NewClient(baseURL string, tokens domain.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      slog.Default(),
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the market endpoint.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("esi: api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Orders returns the complete current order set for the structure, following
// pagination. The first page yields the page count; remaining pages are
// fetched concurrently. Any failed page or malformed order fails the whole
// call; downstream diffing needs the full list or nothing.
func (c *Client) Orders(ctx context.Context, characterID, structureID int64, forceRefresh bool) ([]domain.Order, error) {
	token, err := c.tokens.Token(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("esi: token for character %d: %w", characterID, err)
	}

	start := time.Now()

	first, pages, err := c.fetchPage(ctx, token, structureID, 1, forceRefresh)
	if err != nil {
		return nil, err
	}
	if pages <= 1 {
		return first, nil
	}

	// Page slots are pre-allocated so results assemble in page order no
	// matter the completion order.
	pageOrders := make([][]domain.Order, pages+1)
	pageOrders[1] = first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for page := 2; page <= pages; page++ {
		g.Go(func() error {
			orders, _, err := c.fetchPage(gctx, token, structureID, page, forceRefresh)
			if err != nil {
				return err
			}
			pageOrders[page] = orders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.Order
	for page := 1; page <= pages; page++ {
		all = append(all, pageOrders[page]...)
	}

	c.logger.Debug("fetched structure orders",
		slog.Int64("structure_id", structureID),
		slog.Int("pages", pages),
		slog.Int("orders", len(all)),
		slog.Duration("duration", time.Since(start)),
	)
	return all, nil
}

// fetchPage retrieves one page and the total page count from its headers.
func (c *Client) fetchPage(ctx context.Context, token string, structureID int64, page int, forceRefresh bool) ([]domain.Order, int, error) {
	url := fmt.Sprintf("%s/markets/structures/%d/?page=%d", c.baseURL, structureID, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("esi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if forceRefresh {
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("esi: page %d of structure %d: %w", page, structureID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("esi: read page %d of structure %d: %w", page, structureID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, fmt.Errorf("esi: page %d of structure %d: %w", page, structureID,
			&APIError{StatusCode: resp.StatusCode, Body: body})
	}

	pages := 1
	if v := resp.Header.Get(pagesHeader); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, 0, fmt.Errorf("esi: structure %d: bad %s header %q", structureID, pagesHeader, v)
		}
		pages = n
	}

	var wire []structureOrder
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, 0, fmt.Errorf("esi: decode page %d of structure %d: %w", page, structureID, err)
	}

	orders := make([]domain.Order, 0, len(wire))
	for _, w := range wire {
		o, err := w.toDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("esi: page %d of structure %d: %w", page, structureID, err)
		}
		orders = append(orders, o)
	}
	return orders, pages, nil
}

// Fetcher binds a Client to the character whose token can read a structure's
// market, satisfying the collector's OrderFetcher.
type Fetcher struct {
	Client      *Client
	CharacterID int64
}

// FetchOrders implements collector.OrderFetcher.
func (f Fetcher) FetchOrders(ctx context.Context, structureID int64, forceRefresh bool) ([]domain.Order, error) {
	return f.Client.Orders(ctx, f.CharacterID, structureID, forceRefresh)
}
