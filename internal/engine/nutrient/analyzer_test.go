package nutrient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindfork-recommender/internal/catalog"
	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/models"
)

type fakeStore struct {
	logs  []models.FoodLogEntry
	err   error
	calls int
}

func (f *fakeStore) GetFoodLogs(context.Context, string, time.Time, time.Time) ([]models.FoodLogEntry, error) {
	f.calls++
	return f.logs, f.err
}

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer(t *testing.T, store Store, cacheSize int) *Analyzer {
	return New(store, catalog.Default(), logger.NewTestLogger(t), Options{
		Now:       func() time.Time { return fixedNow },
		CacheSize: cacheSize,
	})
}

func logEntry(name string, grams float64) models.FoodLogEntry {
	return models.FoodLogEntry{FoodName: name, Amount: grams, Unit: "g"}
}

func TestAnalyze_NoLogs(t *testing.T) {
	a := newTestAnalyzer(t, &fakeStore{}, 0)

	got := a.Analyze("u1", "2025-03-14", nil)

	assert.Equal(t, 40.0, got.BalanceScore)
	assert.Len(t, got.Deficiencies, 20)
	assert.Empty(t, got.Overconsumption)
	assert.Equal(t, []string{"folate", "iron", "vitamin_b12", "vitamin_d", "calcium"}, got.PriorityNutrients)
	for _, d := range got.Deficiencies[:4] {
		assert.Equal(t, models.ImportanceCritical, d.Importance)
	}
	assert.Equal(t, models.ImportanceModerate, got.Deficiencies[4].Importance)
	require.NotEmpty(t, got.Recommendations)
	assert.Equal(t, "Increase Folate: try liver or spinach", got.Recommendations[0])
}

func TestAnalyze_SalmonAndSpinach(t *testing.T) {
	a := newTestAnalyzer(t, &fakeStore{}, 0)
	logs := []models.FoodLogEntry{
		logEntry("Baby Spinach", 200),
		logEntry("Grilled Salmon", 150),
	}

	got := a.Analyze("u1", "2025-03-14", logs)

	assert.InDelta(t, 1660.5, got.Intake["potassium"], 1e-9)
	assert.InDelta(t, 16.5, got.Intake["vitamin_d"], 1e-9)

	require.NotEmpty(t, got.Deficiencies)
	iron := got.Deficiencies[0]
	assert.Equal(t, "iron", iron.Nutrient)
	assert.Equal(t, models.ImportanceCritical, iron.Importance)
	assert.InDelta(t, 70, iron.DeficitPercent, 1e-9)

	for _, d := range got.Deficiencies {
		assert.NotEqual(t, "vitamin_d", d.Nutrient)
		assert.NotEqual(t, "folate", d.Nutrient)
	}
	assert.Empty(t, got.Overconsumption)
	assert.Greater(t, got.BalanceScore, 40.0)
}

func TestAnalyze_Overconsumption(t *testing.T) {
	a := newTestAnalyzer(t, &fakeStore{}, 0)
	logs := []models.FoodLogEntry{
		logEntry("Liver", 100),
		logEntry("Spinach", 200),
	}

	got := a.Analyze("u1", "2025-03-14", logs)

	var over []string
	for _, e := range got.Overconsumption {
		over = append(over, e.Nutrient)
	}
	assert.Contains(t, over, "vitamin_a")
	assert.Contains(t, over, "vitamin_b12")
	assert.Contains(t, got.Recommendations, "Reduce Vitamin A, intake is above the upper limit")
}

func TestAnalyzeNutrientGaps_Caches(t *testing.T) {
	store := &fakeStore{logs: []models.FoodLogEntry{logEntry("Salmon", 100)}}
	a := newTestAnalyzer(t, store, 0)
	ctx := context.Background()

	first, err := a.AnalyzeNutrientGaps(ctx, "u1", "2025-03-14")
	require.NoError(t, err)
	second, err := a.AnalyzeNutrientGaps(ctx, "u1", "")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.calls)

	a.InvalidateUser("u1")
	third, err := a.AnalyzeNutrientGaps(ctx, "u1", "2025-03-14")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, store.calls)

	refreshed, err := a.RefreshNutrientGaps(ctx, "u1", "2025-03-14")
	require.NoError(t, err)
	assert.NotSame(t, third, refreshed)
	assert.Equal(t, 3, store.calls)
}

func TestAnalyzeNutrientGaps_EvictsOldest(t *testing.T) {
	store := &fakeStore{}
	a := newTestAnalyzer(t, store, 2)
	ctx := context.Background()

	for _, date := range []string{"2025-03-12", "2025-03-13", "2025-03-14"} {
		_, err := a.AnalyzeNutrientGaps(ctx, "u1", date)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.calls)

	_, err := a.AnalyzeNutrientGaps(ctx, "u1", "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls, "newest entry is still cached")

	_, err = a.AnalyzeNutrientGaps(ctx, "u1", "2025-03-12")
	require.NoError(t, err)
	assert.Equal(t, 4, store.calls, "oldest entry was evicted")
}

func TestAnalyzeNutrientGaps_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestAnalyzer(t, &fakeStore{}, 0).AnalyzeNutrientGaps(ctx, "u1", "14/03/2025")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	boom := errors.New("connection reset")
	_, err = newTestAnalyzer(t, &fakeStore{err: boom}, 0).AnalyzeNutrientGaps(ctx, "u1", "")
	assert.ErrorIs(t, err, boom)
}

func TestFindNutrientRichFoods(t *testing.T) {
	a := newTestAnalyzer(t, &fakeStore{}, 0)

	got := a.FindNutrientRichFoods([]string{"vitamin_c"}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "bell pepper", got[0].FoodName)
	assert.Equal(t, "kale", got[1].FoodName)
	assert.Equal(t, "broccoli", got[2].FoodName)
	assert.InDelta(t, 142.2, got[0].PercentOfTarget, 1e-9)
	assert.Equal(t, "mg", got[0].Unit)

	assert.Empty(t, a.FindNutrientRichFoods([]string{"unobtainium"}, 3))
	assert.Len(t, a.FindNutrientRichFoods([]string{"iron", "omega_3"}, 0), 10)
}

func TestSuggestNutrientCombinations(t *testing.T) {
	a := newTestAnalyzer(t, &fakeStore{}, 0)

	got := a.SuggestNutrientCombinations([]models.NutrientDeficiency{{Nutrient: "iron"}})

	require.Len(t, got, 1)
	assert.Equal(t, []string{"iron", "vitamin_c"}, got[0].Nutrients)
	assert.Equal(t, []string{"dark chocolate", "bell pepper"}, got[0].Foods)
	assert.Equal(t, "Serve dark chocolate with a squeeze of citrus or alongside bell pepper", got[0].PreparationSuggestion)

	assert.Empty(t, a.SuggestNutrientCombinations(nil))

	vitD := a.SuggestNutrientCombinations([]models.NutrientDeficiency{{Nutrient: "vitamin_d"}})
	assert.Len(t, vitD, 2)
	for _, c := range vitD {
		assert.NotEqual(t, c.Foods[0], c.Foods[1])
	}
}
