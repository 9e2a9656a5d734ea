package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"mindfork-recommender/internal/catalog"
	"mindfork-recommender/internal/engine"
	"mindfork-recommender/internal/models"
)

var componentWeights = struct {
	macroFit, nutrientDensity, preference, goal, timing, personal, variety, seasonal float64
}{0.30, 0.25, 0.20, 0.15, 0.05, 0.03, 0.01, 0.01}

// Confidence lost for each signal missing from the scoring context.
const (
	missingMacroPenalty      = 15
	missingGapsPenalty       = 15
	missingPreferencePenalty = 10
	missingHistoryPenalty    = 10
	missingRemainingPenalty  = 10
)

const (
	maxReasons          = 3
	maxImprovements     = 3
	improvementsBelow   = 70.0
	lateHoursUntilBed   = 3.0
	heavyServingCalorie = 400.0
	snackCalorieCeiling = 250.0
)

// CalculateOverallScore combines eight weighted components for a food in a
// context. Missing context fields fall back to neutral values and lower the
// confidence level.
func (s *Scorer) CalculateOverallScore(food models.FoodItem, sc models.ScoringContext) models.CompatibilityScore {
	mf, err := s.CalculateMindForkScore(food)
	if err != nil {
		s.logger.Warn("mindfork score unavailable, using default", map[string]interface{}{
			"foodId": food.ID,
			"error":  err.Error(),
		})
		mf = DefaultMindForkScore(food.ID)
	}
	if sc.Now.IsZero() {
		sc.Now = s.now()
	}

	density, closes := s.nutrientDensityComponent(food, sc, mf)
	c := models.ComponentScores{
		MacroFit:        macroFitComponent(sc),
		NutrientDensity: density,
		PreferenceMatch: preferenceComponent(sc),
		GoalAlignment:   goalComponent(food, sc.PrimaryGoal, mf),
		Timing:          s.timingComponent(food, sc),
		PersonalHistory: personalComponent(food, sc, s.classifier.Category(food)),
		Variety:         varietyComponent(sc, s.classifier.Category(food)),
		Seasonal:        s.seasonalComponent(food, sc),
	}

	overall := c.MacroFit*componentWeights.macroFit +
		c.NutrientDensity*componentWeights.nutrientDensity +
		c.PreferenceMatch*componentWeights.preference +
		c.GoalAlignment*componentWeights.goal +
		c.Timing*componentWeights.timing +
		c.PersonalHistory*componentWeights.personal +
		c.Variety*componentWeights.variety +
		c.Seasonal*componentWeights.seasonal
	overall = engine.Round(engine.Clamp100(overall), 2)

	result := models.CompatibilityScore{
		FoodID:          food.ID,
		OverallScore:    overall,
		Components:      c,
		ConfidenceLevel: confidence(sc),
		Reasoning:       reasons(c, sc, closes),
	}
	if overall < improvementsBelow {
		result.Improvements = improvements(c)
	}
	return result
}

func macroFitComponent(sc models.ScoringContext) float64 {
	if sc.Macro == nil {
		return 50
	}
	return sc.Macro.OverallScore
}

func preferenceComponent(sc models.ScoringContext) float64 {
	if sc.Preference == nil {
		return 70
	}
	return sc.Preference.Score
}

// nutrientDensityComponent blends the intrinsic density with how much of
// the user's current gaps the portion closes. It also returns the name of
// the gap the portion helps most with.
func (s *Scorer) nutrientDensityComponent(food models.FoodItem, sc models.ScoringContext, mf *models.MindForkFoodScore) (float64, string) {
	base := mf.NutrientDensityScore
	if sc.NutrientGaps == nil || len(sc.NutrientGaps.Deficiencies) == 0 {
		return base, ""
	}

	per100 := sc.FoodNutrients
	if per100 == nil {
		per100 = s.catalog.FoodNutrientsFor(food)
	}
	grams := sc.PortionGrams
	if grams <= 0 {
		grams = food.ServingGrams()
	}

	var (
		coverage  float64
		counted   int
		best      string
		bestShare float64
	)
	for _, d := range sc.NutrientGaps.Deficiencies {
		if counted == 5 {
			break
		}
		counted++
		gap := d.Target - d.Current
		if gap <= 0 {
			continue
		}
		share := math.Min(1, per100[d.Nutrient]*grams/100/gap)
		coverage += share
		if share > bestShare {
			best, bestShare = d.Nutrient, share
		}
	}
	if counted > 0 {
		coverage /= float64(counted)
	}
	return engine.Clamp100(0.6*base + 40*coverage), best
}

func goalComponent(food models.FoodItem, goal models.PrimaryGoal, mf *models.MindForkFoodScore) float64 {
	n := food.NutritionPer100g
	proteinDensity := 0.0
	if n.Calories > 0 {
		proteinDensity = n.Protein / n.Calories * 100
	}
	energyDensity := n.Calories / 100

	switch goal {
	case models.GoalWeightLoss:
		score := 50.0
		if energyDensity < 1.5 {
			score += 25
		} else if energyDensity > 4 {
			score -= 25
		}
		if proteinDensity >= 10 {
			score += 15
		}
		if n.Fiber >= 3 {
			score += 10
		}
		return engine.Clamp100(score)
	case models.GoalMuscleGain:
		return engine.Clamp100(40 + math.Min(60, proteinDensity*4))
	case models.GoalBrainHealth:
		return engine.Clamp100(50 + mf.Omega3Bonus*3 + mf.PolyphenolBonus*2)
	case models.GoalEnergy:
		return engine.Clamp100(60 + math.Min(20, n.Fiber*4) - math.Min(30, n.SugarOrZero()))
	default:
		return engine.Clamp100(70 - math.Abs(energyDensity-2)*10)
	}
}

func (s *Scorer) timingComponent(food models.FoodItem, sc models.ScoringContext) float64 {
	meal := sc.MealType
	if meal == "" {
		meal = mealAt(sc.Now.Hour())
	}
	servingCalories := food.NutritionPer100g.Calories * food.ServingGrams() / 100

	if sc.Remaining != nil && sc.Remaining.HoursUntilBedtime < lateHoursUntilBed {
		if servingCalories > heavyServingCalorie || food.NutritionPer100g.Calories > 300 {
			return 40
		}
		return 80
	}
	switch meal {
	case models.MealBreakfast:
		if _, ok := s.classifier.Match(food, s.catalog.BreakfastKeywords); ok {
			return 100
		}
		return 70
	case models.MealSnack:
		if servingCalories <= snackCalorieCeiling {
			return 90
		}
		return 50
	default:
		return 75
	}
}

func mealAt(hour int) models.MealType {
	switch {
	case hour < 10:
		return models.MealBreakfast
	case hour < 15:
		return models.MealLunch
	case hour < 17:
		return models.MealSnack
	default:
		return models.MealDinner
	}
}

func personalComponent(food models.FoodItem, sc models.ScoringContext, category string) float64 {
	h := sc.History
	if h == nil {
		return 50
	}
	score := 50 +
		math.Min(30, float64(h.Chosen[food.ID])*10) -
		math.Min(30, float64(h.Ignored[food.ID])*10) +
		h.CategoryPreferences[category]*20
	return engine.Clamp100(score)
}

func varietyComponent(sc models.ScoringContext, category string) float64 {
	if sc.History == nil {
		return 50
	}
	for _, recent := range sc.History.RecentCategories {
		if recent == category {
			return 40
		}
	}
	return 100
}

func (s *Scorer) seasonalComponent(food models.FoodItem, sc models.ScoringContext) float64 {
	if _, ok := s.classifier.Match(food, s.catalog.SeasonalProduce(int(sc.Now.Month()))); ok {
		return 100
	}
	return 50
}

func confidence(sc models.ScoringContext) float64 {
	c := 100.0
	if sc.Macro == nil {
		c -= missingMacroPenalty
	}
	if sc.NutrientGaps == nil {
		c -= missingGapsPenalty
	}
	if sc.Preference == nil {
		c -= missingPreferencePenalty
	}
	if sc.History == nil {
		c -= missingHistoryPenalty
	}
	if sc.Remaining == nil {
		c -= missingRemainingPenalty
	}
	return math.Max(0, c)
}

func reasons(c models.ComponentScores, sc models.ScoringContext, closes string) []string {
	out := make([]string, 0, maxReasons)
	add := func(ok bool, msg string) {
		if ok && len(out) < maxReasons {
			out = append(out, msg)
		}
	}

	add(c.MacroFit >= 80, "Fits your remaining macros well")
	if closes != "" {
		add(c.NutrientDensity >= 60, fmt.Sprintf("Helps close your %s gap", strings.ReplaceAll(closes, "_", " ")))
	} else {
		add(c.NutrientDensity >= 70, "Nutrient-dense choice")
	}
	add(c.PreferenceMatch >= 90, "Matches your dietary preferences")
	if sc.PrimaryGoal != "" {
		add(c.GoalAlignment >= 75, fmt.Sprintf("Supports your %s goal", strings.ReplaceAll(string(sc.PrimaryGoal), "_", " ")))
	}
	if sc.MealType != "" {
		add(c.Timing >= 90, fmt.Sprintf("Good choice for %s", sc.MealType))
	}
	add(c.Seasonal == 100, "In season now")
	return out
}

func improvements(c models.ComponentScores) []string {
	weak := []struct {
		score, below float64
		msg          string
	}{
		{c.MacroFit, 60, "Try a smaller portion to stay within your targets"},
		{c.GoalAlignment, 50, "Consider options better aligned with your goal"},
		{c.PreferenceMatch, 70, "Review the preference warnings for this food"},
		{c.NutrientDensity, 50, "Pair with vegetables to add fiber and micronutrients"},
		{c.Timing, 60, "Might suit another time of day better"},
	}

	out := make([]string, 0, maxImprovements)
	for _, w := range weak {
		if w.score < w.below && len(out) < maxImprovements {
			out = append(out, w.msg)
		}
	}
	return out
}

// CalculatePersonalizationBoost returns a -30..30 adjustment learned from
// the user's history, scaled by how confident that history is.
func (s *Scorer) CalculatePersonalizationBoost(food models.FoodItem, f models.PersonalizationFactors) float64 {
	boost := 0.0
	if n := f.FrequentlyChosen[food.ID]; n > 0 {
		boost += math.Min(float64(n)*3, 15)
	}
	if n := f.FrequentlyIgnored[food.ID]; n > 0 {
		boost -= math.Min(float64(n)*5, 20)
	}
	boost += f.CategoryPreferences[s.classifier.Category(food)] * 10

	for _, cuisine := range f.PreferredCuisines {
		if _, ok := s.classifier.Match(food, s.catalog.Cuisines[catalog.Normalize(cuisine)]); ok {
			boost += 5
			break
		}
	}
	if _, ok := s.classifier.Match(food, f.SeasonalTrends); ok {
		boost += 5
	}

	boost *= engine.Clamp(f.LearningConfidence, 0, 1)
	return engine.Round(engine.Clamp(boost, -30, 30), 2)
}

const diversityHead = 5

// RankRecommendations orders by compatibility score, then estimated
// satisfaction, then MindFork tier. The first five slots then go to the
// best food of each distinct category; the rest keep their sorted order.
func (s *Scorer) RankRecommendations(recs []models.FoodRecommendation) []models.FoodRecommendation {
	sorted := make([]models.FoodRecommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.CompatibilityScore != b.CompatibilityScore {
			return a.CompatibilityScore > b.CompatibilityScore
		}
		sa, sb := satisfaction(a), satisfaction(b)
		if sa != sb {
			return sa > sb
		}
		return a.MindForkTier.Ordinal() > b.MindForkTier.Ordinal()
	})

	head := make([]models.FoodRecommendation, 0, diversityHead)
	tail := make([]models.FoodRecommendation, 0, len(sorted))
	seen := make(map[string]bool, diversityHead)
	for _, r := range sorted {
		if len(head) < diversityHead && !seen[r.Category] {
			seen[r.Category] = true
			head = append(head, r)
			continue
		}
		tail = append(tail, r)
	}
	return append(head, tail...)
}

func satisfaction(r models.FoodRecommendation) float64 {
	if r.EstimatedSatisfaction == nil {
		return 0
	}
	return *r.EstimatedSatisfaction
}
