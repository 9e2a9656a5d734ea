// Package nutrient estimates a user's daily micronutrient intake from their
// food logs and finds the gaps worth closing.
package nutrient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mindfork-recommender/internal/catalog"
	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/models"
)

const (
	deficiencyRatio      = 0.8
	criticalDeficit      = 50.0
	moderateDeficit      = 40.0
	maxPriorityNutrients = 5
	maxRecommendations   = 3
	defaultRichFoods     = 5
	defaultCacheSize     = 1024
)

// Store is the read side the analyzer needs.
type Store interface {
	GetFoodLogs(ctx context.Context, userID string, start, end time.Time) ([]models.FoodLogEntry, error)
}

type Options struct {
	Location  *time.Location
	Now       engine.Clock
	CacheSize int
}

type cacheKey struct {
	userID string
	date   string
}

type Analyzer struct {
	store   Store
	catalog *catalog.Catalog
	loc     *time.Location
	now     engine.Clock
	logger  logger.Logger

	mu        sync.RWMutex
	cache     map[cacheKey]*models.NutrientGapAnalysis
	order     []cacheKey
	cacheSize int
}

func New(store Store, c *catalog.Catalog, log logger.Logger, opts Options) *Analyzer {
	a := &Analyzer{
		store:     store,
		catalog:   c,
		loc:       opts.Location,
		now:       opts.Now,
		logger:    logger.ForComponent(log, "nutrient_analyzer"),
		cache:     make(map[cacheKey]*models.NutrientGapAnalysis),
		cacheSize: opts.CacheSize,
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.cacheSize <= 0 {
		a.cacheSize = defaultCacheSize
	}
	return a
}

// AnalyzeNutrientGaps returns the gap analysis for a user's day, computing
// it from the day's logs on a cache miss. date is YYYY-MM-DD; empty means
// today.
func (a *Analyzer) AnalyzeNutrientGaps(ctx context.Context, userID, date string) (*models.NutrientGapAnalysis, error) {
	day, err := engine.ParseDay(date, a.now(), a.loc)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("date must be YYYY-MM-DD")
	}
	key := cacheKey{userID: userID, date: day.Format(engine.DateLayout)}

	a.mu.RLock()
	cached, ok := a.cache[key]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	logs, err := a.store.GetFoodLogs(ctx, userID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	analysis := a.Analyze(userID, key.date, logs)
	a.put(key, analysis)

	a.logger.Debug("nutrient gaps analyzed", map[string]interface{}{
		"userId":       userID,
		"date":         key.date,
		"deficiencies": len(analysis.Deficiencies),
		"balanceScore": analysis.BalanceScore,
	})
	return analysis, nil
}

// RefreshNutrientGaps drops the cached analysis for the day and recomputes it.
func (a *Analyzer) RefreshNutrientGaps(ctx context.Context, userID, date string) (*models.NutrientGapAnalysis, error) {
	day, err := engine.ParseDay(date, a.now(), a.loc)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("date must be YYYY-MM-DD")
	}
	key := cacheKey{userID: userID, date: day.Format(engine.DateLayout)}

	a.mu.Lock()
	delete(a.cache, key)
	a.mu.Unlock()

	return a.AnalyzeNutrientGaps(ctx, userID, key.date)
}

// InvalidateUser drops every cached analysis of the user.
func (a *Analyzer) InvalidateUser(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.cache {
		if key.userID == userID {
			delete(a.cache, key)
		}
	}
}

// put stores an analysis, evicting the oldest entries past the cache size.
// Keys in order may already be gone from the map after an invalidation.
func (a *Analyzer) put(key cacheKey, analysis *models.NutrientGapAnalysis) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.cache[key]; !exists {
		a.order = append(a.order, key)
	}
	a.cache[key] = analysis

	for len(a.cache) > a.cacheSize && len(a.order) > 0 {
		oldest := a.order[0]
		a.order = a.order[1:]
		delete(a.cache, oldest)
	}
	if len(a.order) > 2*a.cacheSize {
		live := a.order[:0]
		for _, k := range a.order {
			if _, ok := a.cache[k]; ok {
				live = append(live, k)
			}
		}
		a.order = live
	}
}

// NutrientsFor returns the food's micronutrients per 100 g.
func (a *Analyzer) NutrientsFor(food models.FoodItem) map[string]float64 {
	return a.catalog.FoodNutrientsFor(food)
}

// Intake sums the micronutrients of the logged portions.
func (a *Analyzer) Intake(logs []models.FoodLogEntry) map[string]float64 {
	intake := make(map[string]float64)
	for _, entry := range logs {
		per100 := a.catalog.FoodNutrientsFor(models.FoodItem{ID: entry.FoodID, Name: entry.FoodName})
		factor := entry.Grams() / 100
		for nutrient, amount := range per100 {
			intake[nutrient] += amount * factor
		}
	}
	return intake
}

// Analyze is the pure part of AnalyzeNutrientGaps.
func (a *Analyzer) Analyze(userID, date string, logs []models.FoodLogEntry) *models.NutrientGapAnalysis {
	intake := a.Intake(logs)

	var (
		deficiencies = []models.NutrientDeficiency{}
		excesses     = []models.NutrientExcess{}
		bandTotal    float64
		tracked      int
	)
	for _, name := range a.catalog.NutrientNames() {
		target, _ := a.catalog.Target(name)
		current := intake[name]
		ratio := current / target.Target

		if ratio < deficiencyRatio {
			deficit := (1 - ratio) * 100
			deficiencies = append(deficiencies, models.NutrientDeficiency{
				Nutrient:       name,
				Current:        engine.Round(current, 2),
				Target:         target.Target,
				Unit:           target.Unit,
				DeficitPercent: engine.Round(deficit, 1),
				Importance:     a.importance(name, deficit),
			})
		}
		if limit := target.UpperLimit(); current > limit {
			excesses = append(excesses, models.NutrientExcess{
				Nutrient:   name,
				Current:    engine.Round(current, 2),
				UpperLimit: limit,
				Unit:       target.Unit,
			})
		}
		bandTotal += bandScore(ratio)
		tracked++
	}

	sort.SliceStable(deficiencies, func(i, j int) bool {
		di, dj := deficiencies[i], deficiencies[j]
		if di.Importance.Rank() != dj.Importance.Rank() {
			return di.Importance.Rank() > dj.Importance.Rank()
		}
		if di.DeficitPercent != dj.DeficitPercent {
			return di.DeficitPercent > dj.DeficitPercent
		}
		return di.Nutrient < dj.Nutrient
	})

	priority := make([]string, 0, maxPriorityNutrients)
	for _, d := range deficiencies {
		if len(priority) == maxPriorityNutrients {
			break
		}
		priority = append(priority, d.Nutrient)
	}

	balance := 0.0
	if tracked > 0 {
		balance = engine.Round(bandTotal/float64(tracked), 1)
	}

	return &models.NutrientGapAnalysis{
		UserID:            userID,
		Date:              date,
		Deficiencies:      deficiencies,
		Overconsumption:   excesses,
		BalanceScore:      balance,
		Recommendations:   a.recommendations(deficiencies, excesses),
		PriorityNutrients: priority,
		Intake:            intake,
		AnalyzedAt:        a.now(),
	}
}

func (a *Analyzer) importance(nutrient string, deficit float64) models.DeficiencyImportance {
	switch {
	case a.catalog.IsCritical(nutrient) && deficit > criticalDeficit:
		return models.ImportanceCritical
	case deficit > moderateDeficit:
		return models.ImportanceModerate
	default:
		return models.ImportanceMinor
	}
}

// bandScore rates how close intake is to target: 100 inside 80-120 %,
// then 80, 60 and 40 for wider bands.
func bandScore(ratio float64) float64 {
	switch {
	case ratio >= 0.8 && ratio <= 1.2:
		return 100
	case ratio >= 0.6 && ratio <= 1.5:
		return 80
	case ratio >= 0.4 && ratio <= 2.0:
		return 60
	default:
		return 40
	}
}

func (a *Analyzer) recommendations(deficiencies []models.NutrientDeficiency, excesses []models.NutrientExcess) []string {
	recs := make([]string, 0, maxRecommendations+len(excesses))
	for _, d := range deficiencies {
		if len(recs) == maxRecommendations {
			break
		}
		name := a.displayName(d.Nutrient)
		foods := a.FindNutrientRichFoods([]string{d.Nutrient}, 2)
		if len(foods) == 0 {
			recs = append(recs, fmt.Sprintf("Increase %s intake", name))
			continue
		}
		names := make([]string, 0, len(foods))
		for _, f := range foods {
			names = append(names, f.FoodName)
		}
		recs = append(recs, fmt.Sprintf("Increase %s: try %s", name, strings.Join(names, " or ")))
	}
	for _, e := range excesses {
		recs = append(recs, fmt.Sprintf("Reduce %s, intake is above the upper limit", a.displayName(e.Nutrient)))
	}
	if len(recs) == 0 {
		recs = append(recs, "Your micronutrient intake is well balanced today")
	}
	return recs
}

func (a *Analyzer) displayName(nutrient string) string {
	if t, ok := a.catalog.Target(nutrient); ok && t.Name != "" {
		return t.Name
	}
	return nutrient
}

// FindNutrientRichFoods returns up to limit catalog foods per nutrient,
// richest first relative to the daily target. Unknown nutrients are skipped.
func (a *Analyzer) FindNutrientRichFoods(nutrients []string, limit int) []models.NutrientRichFood {
	if limit <= 0 {
		limit = defaultRichFoods
	}
	var out []models.NutrientRichFood
	for _, nutrient := range nutrients {
		target, ok := a.catalog.Target(nutrient)
		if !ok {
			continue
		}
		var rich []models.NutrientRichFood
		for food, profile := range a.catalog.FoodNutrients {
			amount := profile[nutrient]
			if amount <= 0 {
				continue
			}
			rich = append(rich, models.NutrientRichFood{
				FoodName:        food,
				Nutrient:        nutrient,
				AmountPer100g:   amount,
				Unit:            target.Unit,
				PercentOfTarget: engine.Round(amount/target.Target*100, 1),
			})
		}
		sort.Slice(rich, func(i, j int) bool {
			if rich[i].PercentOfTarget != rich[j].PercentOfTarget {
				return rich[i].PercentOfTarget > rich[j].PercentOfTarget
			}
			return rich[i].FoodName < rich[j].FoodName
		})
		if len(rich) > limit {
			rich = rich[:limit]
		}
		out = append(out, rich...)
	}
	return out
}

// SuggestNutrientCombinations pairs foods for every synergy that touches a
// deficient nutrient. The two foods are always distinct.
func (a *Analyzer) SuggestNutrientCombinations(deficiencies []models.NutrientDeficiency) []models.NutrientCombination {
	deficient := make(map[string]bool, len(deficiencies))
	for _, d := range deficiencies {
		deficient[d.Nutrient] = true
	}

	combos := make([]models.NutrientCombination, 0)
	for _, s := range a.catalog.Synergies {
		first, second := s.Nutrients[0], s.Nutrients[1]
		if !deficient[first] && !deficient[second] {
			continue
		}
		foodA, ok := a.topFood(first, "")
		if !ok {
			continue
		}
		foodB, ok := a.topFood(second, foodA)
		if !ok {
			continue
		}
		prep := strings.NewReplacer("{a}", foodA, "{b}", foodB).Replace(s.Preparation)
		combos = append(combos, models.NutrientCombination{
			Foods:                 []string{foodA, foodB},
			Nutrients:             []string{first, second},
			Synergy:               s.Synergy,
			PreparationSuggestion: prep,
		})
	}
	return combos
}

func (a *Analyzer) topFood(nutrient, exclude string) (string, bool) {
	for _, f := range a.FindNutrientRichFoods([]string{nutrient}, 3) {
		if f.FoodName != exclude {
			return f.FoodName, true
		}
	}
	return "", false
}
