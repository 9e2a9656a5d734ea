package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"mindfork-recommender/internal/common/config"
	"mindfork-recommender/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestElasticsearchClient_Ping(t *testing.T) {
	tests := []struct {
		name      string
		foodIndex string
		indexCode int
		wantCode  errors.ErrorCode
	}{
		{name: "cluster only", foodIndex: ""},
		{name: "food index present", foodIndex: "foods", indexCode: http.StatusOK},
		{name: "food index missing", foodIndex: "foods", indexCode: http.StatusNotFound, wantCode: errors.ErrCodeIndexNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				if r.URL.Path == "/"+tt.foodIndex && tt.foodIndex != "" {
					w.WriteHeader(tt.indexCode)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			t.Cleanup(srv.Close)

			client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}, FoodIndex: tt.foodIndex})
			require.NoError(t, err)

			err = client.Ping(context.Background())
			if tt.wantCode != "" {
				assert.True(t, errors.HasCode(err, tt.wantCode))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := config.PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "mindfork", SSLMode: "disable"}
	client, err := NewPostgres(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 0, client.Stats().OpenConnections)
}

func TestPostgresClient_PingUnreachable(t *testing.T) {
	cfg := config.PostgresConfig{Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Database: "mindfork", SSLMode: "disable"}
	client, err := NewPostgres(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDatabaseConnectionFailed))
}
