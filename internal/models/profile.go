// internal/models/profile.go
package models

import "time"

type PrimaryGoal string

const (
	GoalWeightLoss  PrimaryGoal = "weight_loss"
	GoalMuscleGain  PrimaryGoal = "muscle_gain"
	GoalMaintenance PrimaryGoal = "maintenance"
	GoalBrainHealth PrimaryGoal = "brain_health"
	GoalEnergy      PrimaryGoal = "energy"
)

type UserProfile struct {
	UserID      string                 `json:"userId"`
	Goals       DailyGoals             `json:"goals"`
	PrimaryGoal PrimaryGoal            `json:"primaryGoal,omitempty"`
	Preferences UserDietaryPreferences `json:"preferences"`
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

type FoodLogEntry struct {
	FoodID   string    `json:"foodId"`
	FoodName string    `json:"foodName"`
	Amount   float64   `json:"amount"`
	Unit     string    `json:"unit"`
	Calories float64   `json:"calories"`
	Protein  float64   `json:"protein"`
	Carbs    float64   `json:"carbs"`
	Fat      float64   `json:"fat"`
	Fiber    float64   `json:"fiber"`
	LoggedAt time.Time `json:"loggedAt"`
	MealType MealType  `json:"mealType"`
}

// Grams converts the logged amount to grams; non-gram units count as one
// 100 g serving each.
func (e FoodLogEntry) Grams() float64 {
	switch e.Unit {
	case "", "g", "gram", "grams", "ml":
		return e.Amount
	case "kg":
		return e.Amount * 1000
	case "oz":
		return e.Amount * 28.3495
	default:
		return e.Amount * 100
	}
}

type InteractionType string

const (
	InteractionSelected InteractionType = "selected"
	InteractionIgnored  InteractionType = "ignored"
	InteractionFeedback InteractionType = "feedback"
	InteractionViewed   InteractionType = "viewed"
)

// FoodInteraction is an audit row; Payload carries feedback or context.
type FoodInteraction struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"userId"`
	FoodID          string                 `json:"foodId"`
	InteractionType InteractionType        `json:"interactionType"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// FoodHistory aggregates past interactions for personalization.
type FoodHistory struct {
	Chosen              map[string]int     `json:"chosen,omitempty"`
	Ignored             map[string]int     `json:"ignored,omitempty"`
	CategoryPreferences map[string]float64 `json:"categoryPreferences,omitempty"`
	RecentCategories    []string           `json:"recentCategories,omitempty"`
	TotalInteractions   int                `json:"totalInteractions"`
}
