package recommendation

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/models"
)

const (
	similarFoodLimit = 10
	maxAlternatives  = 3
)

// GetRecommendationsForScannedFood scores one food for the user and lists
// similar foods that score better. A food that does not exist is the only
// error returned; other failures degrade the result instead.
func (s *Service) GetRecommendationsForScannedFood(ctx context.Context, userID, foodID string) (*models.ScannedFoodResult, error) {
	started := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "recommendation.scanned_food",
		attribute.String("user.id", userID),
		attribute.String("food.id", foodID),
	)
	defer span.End()

	result, err := s.scanned(ctx, userID, foodID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.record(ctx, "scanned_food", statusError, started, 0)
		return nil, err
	}
	s.record(ctx, "scanned_food", statusSuccess, started, 1+len(result.Alternatives))
	return result, nil
}

func (s *Service) scanned(ctx context.Context, userID, foodID string) (*models.ScannedFoodResult, error) {
	food, err := s.foods.GetFood(ctx, foodID)
	if err != nil {
		return nil, apperrors.NewFetchError("scanned food", err)
	}
	if food == nil {
		return nil, apperrors.NewScannedFoodNotFoundError(foodID).WithMetadata("userId", userID)
	}

	now := s.opts.Now()
	day, _ := engine.ParseDay("", now, s.macro.Location())
	uc, err := s.loadContext(ctx, userID, day)
	if err != nil {
		s.logger.Warn("scoring scanned food without user context", map[string]interface{}{
			"userId": userID,
			"foodId": foodID,
			"error":  err.Error(),
		})
		uc = nil
	}

	var gaps *models.NutrientGapAnalysis
	if g, err := s.nutrients.AnalyzeNutrientGaps(ctx, userID, day.Format(engine.DateLayout)); err == nil {
		gaps = g
	}

	prefs := uc.preferences()
	in := scoringInputs{user: uc, gaps: gaps, now: now}
	check := s.filter.CheckFoodCompatibility(*food, prefs)
	target := s.score(ctx, *food, check, in)

	s.saveCompatibility(ctx, *food, prefs.DietType, target.compat, now)

	return &models.ScannedFoodResult{
		Food:           *food,
		Recommendation: target.rec,
		Compatibility:  target.compat,
		Preference:     check,
		MindFork:       *target.mindfork,
		Alternatives:   s.betterAlternatives(ctx, *food, prefs, target.compat.OverallScore, in),
	}, nil
}

// betterAlternatives returns compatible foods of the same category that
// outscore the scanned one, best first.
func (s *Service) betterAlternatives(ctx context.Context, food models.FoodItem, prefs models.UserDietaryPreferences, threshold float64, in scoringInputs) []models.FoodRecommendation {
	similar, err := s.foods.FindSimilarFoods(ctx, food, similarFoodLimit)
	if err != nil {
		s.logger.Warn("similar foods unavailable", map[string]interface{}{"foodId": food.ID, "error": err.Error()})
		return []models.FoodRecommendation{}
	}

	better := make([]models.FoodRecommendation, 0, len(similar))
	for _, c := range s.filter.FilterFoodsByPreferences(similar, prefs) {
		scored := s.score(ctx, c.Food, c.Check, in)
		if scored.rec.CompatibilityScore > threshold {
			better = append(better, scored.rec)
		}
	}
	return truncate(s.scorer.RankRecommendations(better), maxAlternatives)
}

func (s *Service) saveCompatibility(ctx context.Context, food models.FoodItem, dietType models.DietType, compat models.CompatibilityScore, at time.Time) {
	if dietType == "" {
		dietType = models.DietMindFork
	}
	details, err := json.Marshal(compat)
	if err != nil {
		return
	}
	if err := s.store.SaveCompatibilityScore(ctx, food.ID, dietType, compat.OverallScore, details, at); err != nil {
		s.logger.Warn("compatibility score not saved", map[string]interface{}{
			"foodId": food.ID,
			"error":  err.Error(),
		})
	}
}
