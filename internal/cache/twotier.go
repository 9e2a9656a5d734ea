package cache

import (
	"context"
	"time"

	"mindfork-recommender/internal/common/metrics"
)

// TwoTier reads the local tier first and falls back to the durable one,
// backfilling local on a durable hit. Durable may be nil.
type TwoTier struct {
	local   Tier
	durable Tier
	now     Clock
}

func NewTwoTier(local, durable Tier, now Clock) *TwoTier {
	return &TwoTier{local: local, durable: durable, now: clockOrNow(now)}
}

// Get returns the entry and the name of the tier that served it. A durable
// error is returned alongside a nil entry and counts as a miss.
func (t *TwoTier) Get(ctx context.Context, key Key) (*Entry, string, error) {
	if entry, err := t.local.Get(ctx, key); err == nil && entry != nil {
		metrics.CacheLookups.WithLabelValues(t.local.Name(), "hit").Inc()
		return entry, t.local.Name(), nil
	}
	metrics.CacheLookups.WithLabelValues(t.local.Name(), "miss").Inc()

	if t.durable == nil {
		return nil, "", nil
	}

	entry, err := t.durable.Get(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(t.durable.Name(), "error").Inc()
		return nil, "", err
	}
	if entry == nil || entry.Expired(t.now()) {
		metrics.CacheLookups.WithLabelValues(t.durable.Name(), "miss").Inc()
		return nil, "", nil
	}

	metrics.CacheLookups.WithLabelValues(t.durable.Name(), "hit").Inc()
	_ = t.local.Set(ctx, key, entry.Payload, entry.ExpiresAt)
	return entry, t.durable.Name(), nil
}

// Set writes both tiers. The local write always happens; the durable error,
// if any, is returned.
func (t *TwoTier) Set(ctx context.Context, key Key, payload []byte, ttl time.Duration) error {
	expiresAt := t.now().Add(ttl)
	_ = t.local.Set(ctx, key, payload, expiresAt)
	if t.durable == nil {
		return nil
	}
	return t.durable.Set(ctx, key, payload, expiresAt)
}

// InvalidateOwner drops every entry of owner from both tiers.
func (t *TwoTier) InvalidateOwner(ctx context.Context, owner string) error {
	_ = t.local.DeleteOwner(ctx, owner)
	if t.durable == nil {
		return nil
	}
	return t.durable.DeleteOwner(ctx, owner)
}
