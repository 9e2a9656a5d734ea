// internal/models/scores.go
package models

import "time"

type MindForkTier string

const (
	TierPinkFire   MindForkTier = "pink_fire"
	TierBrainSmart MindForkTier = "brain_smart"
	TierGood       MindForkTier = "good"
	TierCaution    MindForkTier = "caution"
	TierHeavy      MindForkTier = "heavy"
	TierSootBad    MindForkTier = "soot_bad"
)

// Ordinal ranks tiers for tie-breaking, pink_fire highest.
func (t MindForkTier) Ordinal() int {
	switch t {
	case TierPinkFire:
		return 6
	case TierBrainSmart:
		return 5
	case TierGood:
		return 4
	case TierCaution:
		return 3
	case TierHeavy:
		return 2
	case TierSootBad:
		return 1
	default:
		return 0
	}
}

// MindForkFoodScore is food-intrinsic and cached per food.
type MindForkFoodScore struct {
	FoodID               string       `json:"foodId"`
	Score                float64      `json:"score"`
	Tier                 MindForkTier `json:"tier"`
	EnergyDensity        float64      `json:"energyDensity"`
	EnergyDensityScore   float64      `json:"energyDensityScore"`
	ProcessingLevel      int          `json:"processingLevel"`
	NutrientDensityScore float64      `json:"nutrientDensityScore"`
	PolyphenolBonus      float64      `json:"polyphenolBonus"`
	Omega3Bonus          float64      `json:"omega3Bonus"`
	UPFPenalty           float64      `json:"upfPenalty"`
	SatietyScore         float64      `json:"satietyScore"`
	CalculatedAt         time.Time    `json:"calculatedAt"`
}

type ComponentScores struct {
	MacroFit        float64 `json:"macroFit"`
	NutrientDensity float64 `json:"nutrientDensity"`
	PreferenceMatch float64 `json:"preferenceMatch"`
	GoalAlignment   float64 `json:"goalAlignment"`
	Timing          float64 `json:"timing"`
	PersonalHistory float64 `json:"personalHistory"`
	Variety         float64 `json:"variety"`
	Seasonal        float64 `json:"seasonal"`
}

// CompatibilityScore depends on context and is only persisted as part of a
// recommendation.
type CompatibilityScore struct {
	FoodID          string          `json:"foodId"`
	OverallScore    float64         `json:"overallScore"`
	Components      ComponentScores `json:"components"`
	ConfidenceLevel float64         `json:"confidenceLevel"`
	Reasoning       []string        `json:"reasoning"`
	Improvements    []string        `json:"improvements,omitempty"`
}

// ScoringContext carries every optional signal for CalculateOverallScore.
// A nil field lowers the confidence level.
type ScoringContext struct {
	Macro         *MacroCompatibility
	PortionGrams  float64
	NutrientGaps  *NutrientGapAnalysis
	FoodNutrients map[string]float64
	Preferences   *UserDietaryPreferences
	Preference    *PreferenceCheck
	PrimaryGoal   PrimaryGoal
	MealType      MealType
	Remaining     *RemainingTargets
	History       *FoodHistory
	Now           time.Time
}

// PersonalizationFactors feed CalculatePersonalizationBoost.
type PersonalizationFactors struct {
	FrequentlyChosen    map[string]int     `json:"frequentlyChosen,omitempty"`
	FrequentlyIgnored   map[string]int     `json:"frequentlyIgnored,omitempty"`
	CategoryPreferences map[string]float64 `json:"categoryPreferences,omitempty"`
	PreferredCuisines   []string           `json:"preferredCuisines,omitempty"`
	SeasonalTrends      []string           `json:"seasonalTrends,omitempty"`
	LearningConfidence  float64            `json:"learningConfidence"`
}
