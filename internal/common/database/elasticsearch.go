package database

import (
	"context"
	"net/http"

	"mindfork-recommender/internal/common/config"
	"mindfork-recommender/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client used for food search. Readiness
// requires both the cluster and the food index.
type ElasticsearchClient struct {
	Client    *elasticsearch.Client
	FoodIndex string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	return &ElasticsearchClient{Client: es, FoodIndex: cfg.FoodIndex}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewElasticsearchConnectionFailedError(nil).WithMetadata("status", res.Status())
	}
	if c.FoodIndex == "" {
		return nil
	}

	exists, err := c.Client.Indices.Exists([]string{c.FoodIndex}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.NewElasticsearchConnectionFailedError(err)
	}
	defer exists.Body.Close()

	if exists.StatusCode == http.StatusNotFound {
		return errors.NewIndexNotFoundError(c.FoodIndex)
	}
	return nil
}
