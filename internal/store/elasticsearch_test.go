package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/models"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *FoodIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewFoodIndex(client, "foods", logger.NewTestLogger(t))
}

const searchBody = `{"hits":{"total":{"value":2},"hits":[
	{"_id":"salmon","_source":{"name":"Salmon","category":"seafood","nutritionPer100g":{"calories":208,"protein":20,"carbs":0,"fat":13,"fiber":0}}},
	{"_id":"trout","_source":{"id":"trout","name":"Trout","category":"seafood","nutritionPer100g":{"calories":141,"protein":20,"carbs":0,"fat":6,"fiber":0}}}
]}}`

func TestFoodIndex_ListCandidateFoods(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/foods/_search", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("size"))
		_, _ = io.WriteString(w, searchBody)
	})

	foods, err := idx.ListCandidateFoods(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, foods, 2)
	assert.Equal(t, "salmon", foods[0].ID, "falls back to the document id")
	assert.Equal(t, 208.0, foods[0].NutritionPer100g.Calories)
}

func TestFoodIndex_FindSimilarFoods(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body)
		assert.Contains(t, string(raw), `"term":{"category":"seafood"}`)
		assert.Contains(t, string(raw), `"values":["salmon"]`)
		_, _ = io.WriteString(w, searchBody)
	})

	foods, err := idx.FindSimilarFoods(context.Background(), models.FoodItem{ID: "salmon", Category: "seafood"}, 5)
	require.NoError(t, err)
	assert.Len(t, foods, 2)
}

func TestFoodIndex_GetFood(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"_id":"missing","found":false}`)
			return
		}
		_, _ = io.WriteString(w, `{"_id":"salmon","found":true,"_source":{"name":"Salmon","category":"seafood"}}`)
	})

	food, err := idx.GetFood(context.Background(), "salmon")
	require.NoError(t, err)
	require.NotNil(t, food)
	assert.Equal(t, "salmon", food.ID)

	food, err = idx.GetFood(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, food)
}

func TestFoodIndex_Errors(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("size") == "1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"}}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"parsing_exception"}}`)
	})

	_, err := idx.ListCandidateFoods(context.Background(), 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeIndexNotFound))

	_, err = idx.SearchFoods(context.Background(), "salmon", 10)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))

	_, err = idx.SearchFoods(context.Background(), "", 10)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
