// Package scoring rates foods: the food-intrinsic MindFork score, the
// context-dependent compatibility score, personalization and ranking.
package scoring

import (
	"math"
	"sync"
	"time"

	"mindfork-recommender/internal/catalog"
	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/common/metrics"
	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/models"
)

const (
	edMidpoint    = 2.5
	edSteepness   = 1.8
	maxUPFPenalty = 40.0

	additivePenalty     = 3.0
	preservativePenalty = 2.0

	defaultMindForkScore = 60.0
)

var upfBasePenalty = map[int]float64{1: 0, 2: 5, 3: 15, 4: 30}

type Scorer struct {
	catalog    *catalog.Catalog
	classifier catalog.IngredientClassifier
	now        engine.Clock
	logger     logger.Logger

	mu       sync.RWMutex
	mindfork map[string]*models.MindForkFoodScore
}

func New(c *catalog.Catalog, classifier catalog.IngredientClassifier, log logger.Logger, now engine.Clock) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{
		catalog:    c,
		classifier: classifier,
		now:        now,
		logger:     logger.ForComponent(log, "compatibility_scorer"),
		mindfork:   make(map[string]*models.MindForkFoodScore),
	}
}

// CalculateMindForkScore returns the food-intrinsic score. Results are
// cached per food and a hit returns the same value.
func (s *Scorer) CalculateMindForkScore(food models.FoodItem) (*models.MindForkFoodScore, error) {
	key := food.CacheKey()

	s.mu.RLock()
	cached, ok := s.mindfork[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if !food.NutritionPer100g.Valid() {
		return nil, apperrors.NewInvalidInputError("food " + key + " has invalid nutrition data")
	}
	score := s.computeMindFork(food)

	s.mu.Lock()
	if existing, ok := s.mindfork[key]; ok {
		score = existing
	} else {
		s.mindfork[key] = score
		metrics.MindForkTierAssigned.WithLabelValues(string(score.Tier)).Inc()
	}
	s.mu.Unlock()
	return score, nil
}

// DefaultMindForkScore is the neutral stand-in used when a food cannot be
// scored.
func DefaultMindForkScore(foodID string) *models.MindForkFoodScore {
	return &models.MindForkFoodScore{
		FoodID:               foodID,
		Score:                defaultMindForkScore,
		Tier:                 TierFor(defaultMindForkScore),
		ProcessingLevel:      2,
		NutrientDensityScore: 50,
		SatietyScore:         50,
	}
}

func (s *Scorer) computeMindFork(food models.FoodItem) *models.MindForkFoodScore {
	n := food.NutritionPer100g
	energyDensity := n.Calories / 100
	edScore := 100 / (1 + math.Exp(edSteepness*(energyDensity-edMidpoint)))

	nd := NutrientDensity(n)
	satiety := Satiety(n)
	level := s.catalog.ProcessingLevel(food)
	poly := s.polyphenolBonus(food)
	omega := s.omega3Bonus(food)
	upf := s.upfPenalty(food, level)

	base := 0.4*edScore + 0.4*nd + 0.2*satiety
	final := engine.Round(engine.Clamp100(base+poly+omega-upf), 2)

	return &models.MindForkFoodScore{
		FoodID:               food.CacheKey(),
		Score:                final,
		Tier:                 TierFor(final),
		EnergyDensity:        engine.Round(energyDensity, 2),
		EnergyDensityScore:   engine.Round(edScore, 2),
		ProcessingLevel:      level,
		NutrientDensityScore: nd,
		PolyphenolBonus:      poly,
		Omega3Bonus:          omega,
		UPFPenalty:           upf,
		SatietyScore:         engine.Round(satiety, 2),
		CalculatedAt:         s.now(),
	}
}

// TierFor maps a MindFork score to its tier.
func TierFor(score float64) models.MindForkTier {
	switch {
	case score >= 90:
		return models.TierPinkFire
	case score >= 80:
		return models.TierBrainSmart
	case score >= 70:
		return models.TierGood
	case score >= 60:
		return models.TierCaution
	case score >= 40:
		return models.TierHeavy
	default:
		return models.TierSootBad
	}
}

// NutrientDensity bands protein and fiber per 100 kcal, 50 points each.
// Zero-calorie foods get a neutral 50.
func NutrientDensity(n models.NutritionPer100g) float64 {
	if n.Calories <= 0 {
		return 50
	}
	proteinPer100kcal := n.Protein / n.Calories * 100
	fiberPer100kcal := n.Fiber / n.Calories * 100
	return band(proteinPer100kcal, 10, 5, 2) + band(fiberPer100kcal, 5, 2.5, 1)
}

func band(v, high, mid, low float64) float64 {
	switch {
	case v >= high:
		return 50
	case v >= mid:
		return 35
	case v >= low:
		return 20
	default:
		return 5
	}
}

// Satiety is protein*2 + fiber*3 + fat*0.5 - sugar*0.5 per 100 g, clamped.
func Satiety(n models.NutritionPer100g) float64 {
	return engine.Clamp100(n.Protein*2 + n.Fiber*3 + n.Fat*0.5 - n.SugarOrZero()*0.5)
}

func (s *Scorer) polyphenolBonus(food models.FoodItem) float64 {
	mg, ok := s.catalog.Lookup(food, s.catalog.Polyphenols)
	switch {
	case !ok || mg <= 0:
		return 0
	case mg >= 500:
		return 10
	case mg >= 200:
		return 7
	case mg >= 100:
		return 5
	case mg >= 50:
		return 3
	default:
		return 1
	}
}

func (s *Scorer) omega3Bonus(food models.FoodItem) float64 {
	g, ok := s.catalog.Lookup(food, s.catalog.Omega3)
	switch {
	case !ok || g <= 0:
		return 0
	case g >= 2:
		return 10
	case g >= 1:
		return 7
	case g >= 0.5:
		return 5
	default:
		return 2
	}
}

func (s *Scorer) upfPenalty(food models.FoodItem, level int) float64 {
	penalty := upfBasePenalty[level] +
		float64(s.catalog.CountKeywords(food, s.catalog.AdditiveKeywords))*additivePenalty +
		float64(s.catalog.CountKeywords(food, s.catalog.PreservativeKeywords))*preservativePenalty
	return math.Min(maxUPFPenalty, penalty)
}
