package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "mindfork-recommender/internal/common/errors"
)

const (
	selectCacheQuery = `SELECT recommendations, expires_at FROM recommendation_cache
		WHERE user_id = $1 AND context_hash = $2 AND expires_at > $3`

	upsertCacheQuery = `INSERT INTO recommendation_cache (user_id, context_hash, recommendations, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, context_hash)
		DO UPDATE SET recommendations = EXCLUDED.recommendations,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`

	deleteOwnerQuery = `DELETE FROM recommendation_cache WHERE user_id = $1`
)

// PostgresTier stores entries in the recommendation_cache table. jsonb
// normalizes whitespace and key order, so payloads come back value-equal
// rather than byte-identical.
type PostgresTier struct {
	db  *sql.DB
	now Clock
}

func NewPostgresTier(db *sql.DB, now Clock) *PostgresTier {
	return &PostgresTier{db: db, now: clockOrNow(now)}
}

func (p *PostgresTier) Name() string { return "postgres" }

func (p *PostgresTier) Get(ctx context.Context, key Key) (*Entry, error) {
	var (
		payload   []byte
		expiresAt time.Time
	)
	err := p.db.QueryRowContext(ctx, selectCacheQuery, key.Owner, key.Hash, p.now()).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewCacheReadFailedError(p.Name(), err)
	}
	return &Entry{Payload: payload, ExpiresAt: expiresAt}, nil
}

func (p *PostgresTier) Set(ctx context.Context, key Key, payload []byte, expiresAt time.Time) error {
	_, err := p.db.ExecContext(ctx, upsertCacheQuery, key.Owner, key.Hash, payload, expiresAt, p.now())
	if err != nil {
		return apperrors.NewCacheWriteFailedError(p.Name(), err)
	}
	return nil
}

func (p *PostgresTier) DeleteOwner(ctx context.Context, owner string) error {
	if _, err := p.db.ExecContext(ctx, deleteOwnerQuery, owner); err != nil {
		return apperrors.NewCacheWriteFailedError(p.Name(), err)
	}
	return nil
}
