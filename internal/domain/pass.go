package domain

import "time"

// CollectOptions tunes a single collection pass.
type CollectOptions struct {
	// ForceRefresh asks the upstream API to bypass its response cache.
	ForceRefresh bool
	// ObservedAt overrides the observation timestamp recorded for the pass.
	// Zero means time.Now().UTC().
	ObservedAt time.Time
}

// PassResult reports the outcome of one successful collection pass.
type PassResult struct {
	StructureID       int64     `json:"structure_id"`
	ObservedAt        time.Time `json:"observed_at"`
	OrderCount        int       `json:"order_count"`
	AggregateKeyCount int       `json:"aggregate_key_count"`
	// Unchanged is true when the snapshot matched the previous one and only
	// its observation timestamp was advanced.
	Unchanged bool `json:"unchanged"`
}
