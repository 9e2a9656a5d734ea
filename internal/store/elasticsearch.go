package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/models"
)

// FoodIndex serves catalog foods from an Elasticsearch index whose documents
// use the FoodItem JSON shape.
type FoodIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewFoodIndex(client *elasticsearch.Client, index string, log logger.Logger) *FoodIndex {
	return &FoodIndex{
		client: client,
		index:  index,
		logger: logger.ForComponent(log, "food_index"),
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source models.FoodItem `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type getResponse struct {
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source models.FoodItem `json:"_source"`
}

func (f *FoodIndex) ListCandidateFoods(ctx context.Context, limit int) ([]models.FoodItem, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
	return f.search(ctx, "list_candidates", query, limit)
}

// GetFood returns nil without error when the document does not exist.
func (f *FoodIndex) GetFood(ctx context.Context, foodID string) (*models.FoodItem, error) {
	req := esapi.GetRequest{Index: f.index, DocumentID: foodID}
	res, err := req.Do(ctx, f.client)
	if err != nil {
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError("get_food", fmt.Errorf("%s", res.String()))
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, apperrors.NewSearchQueryFailedError("get_food", err)
	}
	if !doc.Found {
		return nil, nil
	}
	food := doc.Source
	if food.ID == "" {
		food.ID = doc.ID
	}
	return &food, nil
}

// FindSimilarFoods returns foods of the same category, excluding the food itself.
func (f *FoodIndex) FindSimilarFoods(ctx context.Context, food models.FoodItem, limit int) ([]models.FoodItem, error) {
	if food.Category == "" {
		return nil, nil
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"category": food.Category}},
				},
				"must_not": []interface{}{
					map[string]interface{}{"ids": map[string]interface{}{"values": []string{food.ID}}},
				},
			},
		},
	}
	return f.search(ctx, "similar_foods", query, limit)
}

// SearchFoods runs a free-text search over names and categories.
func (f *FoodIndex) SearchFoods(ctx context.Context, text string, limit int) ([]models.FoodItem, error) {
	if text == "" {
		return nil, apperrors.NewInvalidInputError("search text is empty")
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"name^3", "category"},
				"type":   "best_fields",
			},
		},
	}
	return f.search(ctx, "search_foods", query, limit)
}

func (f *FoodIndex) search(ctx context.Context, queryType string, query map[string]interface{}, limit int) ([]models.FoodItem, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(queryType, err)
	}

	size := limit
	req := esapi.SearchRequest{
		Index: []string{f.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, f.client)
	if err != nil {
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewIndexNotFoundError(f.index)
	}
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(queryType, fmt.Errorf("%s", res.String()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(queryType, err)
	}

	foods := make([]models.FoodItem, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		food := hit.Source
		if food.ID == "" {
			food.ID = hit.ID
		}
		foods = append(foods, food)
	}

	f.logger.Debug("food search completed", map[string]interface{}{
		"queryType": queryType,
		"totalHits": parsed.Hits.Total.Value,
		"returned":  len(foods),
	})
	return foods, nil
}
