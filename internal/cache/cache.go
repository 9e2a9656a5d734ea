// Package cache stores serialized recommendation lists per (user, context
// hash). A process-local tier sits in front of an optional durable tier
// backed by Postgres or Redis.
package cache

import (
	"context"
	"time"
)

// Key addresses one cached recommendation list.
type Key struct {
	Owner string
	Hash  string
}

// Entry is a cached payload with its absolute expiry.
type Entry struct {
	Payload   []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer served at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Tier is one cache layer. Get returns a nil entry on a miss.
type Tier interface {
	Name() string
	Get(ctx context.Context, key Key) (*Entry, error)
	Set(ctx context.Context, key Key, payload []byte, expiresAt time.Time) error
	DeleteOwner(ctx context.Context, owner string) error
}

// Clock returns the current time; tests inject a fixed one.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
