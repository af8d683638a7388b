package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

const summaryTTL = 15 * time.Minute

// SummaryCache implements domain.SummaryCache using one JSON blob per
// structure. The blob carries the observation time so stale reads are
// detectable without a round trip to PostgreSQL.
//
// Key schema:
//
//	summary:{structureID} - JSON-encoded summaryEnvelope
type SummaryCache struct {
	rdb *redis.Client
}

// NewSummaryCache creates a SummaryCache backed by the given Client.
func NewSummaryCache(c *Client) *SummaryCache {
	return &SummaryCache{rdb: c.Underlying()}
}

type summaryEnvelope struct {
	ObservedAt time.Time            `json:"observed_at"`
	Items      []domain.ItemSummary `json:"items"`
}

func summaryKey(structureID int64) string {
	return "summary:" + strconv.FormatInt(structureID, 10)
}

// Set stores the per-item summary for a structure with a 15-minute TTL.
func (sc *SummaryCache) Set(ctx context.Context, structureID int64, items []domain.ItemSummary, observedAt time.Time) error {
	data, err := json.Marshal(summaryEnvelope{ObservedAt: observedAt, Items: items})
	if err != nil {
		return fmt.Errorf("redis: marshal summary %d: %w", structureID, err)
	}
	if err := sc.rdb.Set(ctx, summaryKey(structureID), data, summaryTTL).Err(); err != nil {
		return fmt.Errorf("redis: set summary %d: %w", structureID, err)
	}
	return nil
}

// Get retrieves the cached summary and its observation time for a structure.
// It returns domain.ErrNotFound when the key does not exist.
func (sc *SummaryCache) Get(ctx context.Context, structureID int64) ([]domain.ItemSummary, time.Time, error) {
	data, err := sc.rdb.Get(ctx, summaryKey(structureID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, domain.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("redis: get summary %d: %w", structureID, err)
	}

	var env summaryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: unmarshal summary %d: %w", structureID, err)
	}
	return env.Items, env.ObservedAt, nil
}

// Invalidate removes a structure's cached summary. Called after every changed
// pass so readers never see a summary older than the latest snapshot.
func (sc *SummaryCache) Invalidate(ctx context.Context, structureID int64) error {
	if err := sc.rdb.Del(ctx, summaryKey(structureID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate summary %d: %w", structureID, err)
	}
	return nil
}

var _ domain.SummaryCache = (*SummaryCache)(nil)
