package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mindfork-recommender/internal/common/config"
	"mindfork-recommender/internal/common/errors"

	_ "github.com/lib/pq"
)

// PostgresClient owns the connection pool backing the food store and the
// durable recommendation cache.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Stats exposes pool statistics.
func (c *PostgresClient) Stats() sql.DBStats {
	return c.DB.Stats()
}
