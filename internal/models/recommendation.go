// internal/models/recommendation.go
package models

import "time"

type RecommendedPortion struct {
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type AlternativePortion struct {
	Label    string  `json:"label"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Calories float64 `json:"calories"`
	FitScore float64 `json:"fitScore"`
}

// FoodRecommendation is the user-facing output unit.
type FoodRecommendation struct {
	ID                    string               `json:"id"`
	FoodID                string               `json:"foodId"`
	Name                  string               `json:"name"`
	Category              string               `json:"category"`
	CompatibilityScore    float64              `json:"compatibilityScore"`
	RecommendedPortion    RecommendedPortion   `json:"recommendedPortion"`
	Reasons               []string             `json:"reasons"`
	NutritionalHighlights []string             `json:"nutritionalHighlights"`
	AlternativePortions   []AlternativePortion `json:"alternativePortions"`
	MindForkTier          MindForkTier         `json:"mindforkTier"`
	EstimatedSatisfaction *float64             `json:"estimatedSatisfaction,omitempty"`
}

type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
)

// TimeOfDayAt buckets an hour of the day.
func TimeOfDayAt(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return TimeMorning
	case h >= 11 && h < 17:
		return TimeAfternoon
	case h >= 17 && h < 21:
		return TimeEvening
	default:
		return TimeNight
	}
}

type RecommendationRequest struct {
	UserID     string    `json:"userId"`
	Date       string    `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	TimeOfDay  TimeOfDay `json:"timeOfDay,omitempty"`
	MealType   MealType  `json:"mealType,omitempty"`
	MaxResults int       `json:"maxResults,omitempty"`
}

type RecommendationSource string

const (
	SourceComputed RecommendationSource = "computed"
	SourceCache    RecommendationSource = "cache"
	SourceFallback RecommendationSource = "fallback"
)

type RecommendationResult struct {
	Recommendations []FoodRecommendation `json:"recommendations"`
	Source          RecommendationSource `json:"source"`
	ContextHash     string               `json:"contextHash,omitempty"`
	GeneratedAt     time.Time            `json:"generatedAt"`
}

type ScannedFoodResult struct {
	Food           FoodItem             `json:"food"`
	Recommendation FoodRecommendation   `json:"recommendation"`
	Compatibility  CompatibilityScore   `json:"compatibility"`
	Preference     PreferenceCheck      `json:"preference"`
	MindFork       MindForkFoodScore    `json:"mindfork"`
	Alternatives   []FoodRecommendation `json:"alternatives"`
}
