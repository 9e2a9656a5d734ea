package recommendation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/engine/preference"
	"mindfork-recommender/internal/engine/scoring"
	"mindfork-recommender/internal/models"
)

const (
	maxReasons = 3

	// Interactions after which personalization applies at full strength.
	learningSaturation = 20.0

	highlightProtein     = 20.0
	highlightFiber       = 5.0
	highlightLowCalorie  = 50.0
	highlightMicroSource = 20.0
)

// scoringInputs is the per-request state shared by every candidate. user
// may be nil when the context could not be loaded.
type scoringInputs struct {
	user *userContext
	gaps *models.NutrientGapAnalysis
	meal models.MealType
	now  time.Time
}

type scoredFood struct {
	rec      models.FoodRecommendation
	compat   models.CompatibilityScore
	mindfork *models.MindForkFoodScore
}

// score turns one compatible food into a recommendation.
func (s *Service) score(ctx context.Context, food models.FoodItem, check models.PreferenceCheck, in scoringInputs) scoredFood {
	mf, err := s.scorer.CalculateMindForkScore(food)
	if err != nil {
		s.logger.Warn("mindfork score failed, using default", map[string]interface{}{
			"foodId": food.ID,
			"error":  err.Error(),
		})
		mf = scoring.DefaultMindForkScore(food.ID)
	}

	prefs := in.user.preferences()
	per100 := s.nutrients.NutrientsFor(food)
	sc := models.ScoringContext{
		PortionGrams:  food.ServingGrams(),
		NutrientGaps:  in.gaps,
		FoodNutrients: per100,
		Preferences:   &prefs,
		Preference:    &check,
		MealType:      in.meal,
		Now:           in.now,
	}

	portion := food.NutritionPer100g.Scale(sc.PortionGrams)
	recommended := models.RecommendedPortion{Amount: sc.PortionGrams, Unit: "g"}
	alternatives := []models.AlternativePortion{}

	if in.user != nil {
		sc.History = in.user.history
		if in.user.profile != nil {
			sc.PrimaryGoal = in.user.profile.PrimaryGoal
		}
		if in.user.remaining != nil {
			plan := s.macro.OptimizePortionForTargets(food, *in.user.remaining)
			sc.Macro = &plan.Compatibility
			sc.Remaining = in.user.remaining
			sc.PortionGrams = plan.Optimal.Amount
			portion = plan.Optimal.Nutrition
			recommended = models.RecommendedPortion{Amount: plan.Optimal.Amount, Unit: plan.Optimal.Unit}
			for _, alt := range plan.Alternatives {
				alternatives = append(alternatives, models.AlternativePortion{
					Label:    alt.Label,
					Amount:   alt.Amount,
					Unit:     alt.Unit,
					Calories: engine.Round(alt.Nutrition.Calories, 1),
					FitScore: engine.Round(alt.FitScore, 1),
				})
			}
		}
	}
	recommended.Calories = engine.Round(portion.Calories, 1)
	recommended.Protein = engine.Round(portion.Protein, 1)
	recommended.Carbs = engine.Round(portion.Carbs, 1)
	recommended.Fat = engine.Round(portion.Fat, 1)

	compat := s.scorer.CalculateOverallScore(food, sc)
	satisfaction := engine.Round(0.5*mf.SatietyScore+0.3*check.Score+0.2*compat.Components.PersonalHistory, 1)
	s.obs.RecordScore(ctx, string(mf.Tier), compat.OverallScore)

	return scoredFood{
		rec: models.FoodRecommendation{
			ID:                    uuid.NewString(),
			FoodID:                food.ID,
			Name:                  food.Name,
			Category:              s.classifier.Category(food),
			CompatibilityScore:    compat.OverallScore,
			RecommendedPortion:    recommended,
			Reasons:               reasonsFor(compat, check, mf),
			NutritionalHighlights: s.highlights(food, mf, per100),
			AlternativePortions:   alternatives,
			MindForkTier:          mf.Tier,
			EstimatedSatisfaction: &satisfaction,
		},
		compat:   compat,
		mindfork: mf,
	}
}

func reasonsFor(compat models.CompatibilityScore, check models.PreferenceCheck, mf *models.MindForkFoodScore) []string {
	out := make([]string, 0, maxReasons)
	add := func(msg string) {
		if len(out) == maxReasons {
			return
		}
		for _, existing := range out {
			if existing == msg {
				return
			}
		}
		out = append(out, msg)
	}

	for _, r := range compat.Reasoning {
		add(r)
	}
	if check.CuisineMatch != "" {
		add(preference.Describe(check))
	}
	if mf.Tier.Ordinal() >= models.TierBrainSmart.Ordinal() {
		add(fmt.Sprintf("Rated %s on the MindFork scale", strings.ReplaceAll(string(mf.Tier), "_", " ")))
	}
	if len(out) == 0 {
		add("Fits your remaining targets")
	}
	return out
}

func (s *Service) highlights(food models.FoodItem, mf *models.MindForkFoodScore, per100 map[string]float64) []string {
	n := food.NutritionPer100g
	out := []string{}

	if n.Protein >= highlightProtein {
		out = append(out, fmt.Sprintf("High protein (%.0f g per 100 g)", n.Protein))
	}
	if n.Fiber >= highlightFiber {
		out = append(out, fmt.Sprintf("High fiber (%.1f g per 100 g)", n.Fiber))
	}
	if mf.Omega3Bonus > 0 {
		out = append(out, "Source of omega-3 fats")
	}
	if mf.PolyphenolBonus >= 5 {
		out = append(out, "Rich in polyphenols")
	}
	if name, pct := s.bestMicronutrient(per100); pct >= highlightMicroSource {
		out = append(out, fmt.Sprintf("Good source of %s (%.0f%% of daily target per 100 g)", name, pct))
	}
	if n.Calories > 0 && n.Calories < highlightLowCalorie {
		out = append(out, "Low calorie")
	}
	return out
}

func (s *Service) bestMicronutrient(per100 map[string]float64) (string, float64) {
	var (
		best    string
		bestPct float64
	)
	for _, nutrient := range s.catalog.NutrientNames() {
		target, _ := s.catalog.Target(nutrient)
		if pct := per100[nutrient] / target.Target * 100; pct > bestPct {
			best, bestPct = target.Name, pct
		}
	}
	return best, bestPct
}

// personalize applies the history boost and re-ranks. Recommendations are
// keyed to their food by recommendation id.
func (s *Service) personalize(ranked []models.FoodRecommendation, foods map[string]models.FoodItem, uc *userContext, now time.Time) []models.FoodRecommendation {
	factors := s.personalizationFactors(uc, now)
	if factors.LearningConfidence == 0 {
		return ranked
	}

	out := make([]models.FoodRecommendation, len(ranked))
	copy(out, ranked)
	for i := range out {
		boost := s.scorer.CalculatePersonalizationBoost(foods[out[i].ID], factors)
		if boost != 0 {
			out[i].CompatibilityScore = engine.Round(engine.Clamp100(out[i].CompatibilityScore+boost), 2)
		}
	}
	return s.scorer.RankRecommendations(out)
}

func (s *Service) personalizationFactors(uc *userContext, now time.Time) models.PersonalizationFactors {
	f := models.PersonalizationFactors{
		PreferredCuisines: uc.preferences().PreferredCuisines,
		SeasonalTrends:    s.catalog.SeasonalProduce(int(now.Month())),
	}
	if uc == nil || uc.history == nil {
		return f
	}
	h := uc.history
	f.FrequentlyChosen = h.Chosen
	f.FrequentlyIgnored = h.Ignored
	f.CategoryPreferences = h.CategoryPreferences
	f.LearningConfidence = math.Min(1, float64(h.TotalInteractions)/learningSaturation)
	return f
}
