// internal/models/targets.go
package models

// DailyGoals are the user's configured daily nutrition targets.
type DailyGoals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// RemainingTargets is derived per request and never persisted.
type RemainingTargets struct {
	Calories                 float64 `json:"calories"`
	Protein                  float64 `json:"protein"`
	Carbs                    float64 `json:"carbs"`
	Fat                      float64 `json:"fat"`
	Fiber                    float64 `json:"fiber"`
	PercentageOfDayRemaining float64 `json:"percentageOfDayRemaining"`
	MealsRemaining           float64 `json:"mealsRemaining"`
	HoursUntilBedtime        float64 `json:"hoursUntilBedtime"`
}

type MacroFitScores struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// ExcessBreakdown holds how far each exceeded nutrient goes past what remains.
type ExcessBreakdown struct {
	Calories float64 `json:"calories,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
	Fat      float64 `json:"fat,omitempty"`
}

type MacroCompatibility struct {
	OverallScore       float64          `json:"overallScore"`
	FitScores          MacroFitScores   `json:"fitScores"`
	WouldExceedTargets bool             `json:"wouldExceedTargets"`
	ExcessBreakdown    *ExcessBreakdown `json:"excessBreakdown,omitempty"`
	BalanceScore       float64          `json:"balanceScore"`
	Portion            PortionNutrition `json:"portion"`
}

type PortionOption struct {
	Label     string           `json:"label"`
	Amount    float64          `json:"amount"`
	Unit      string           `json:"unit"`
	Nutrition PortionNutrition `json:"nutrition"`
	FitScore  float64          `json:"fitScore"`
}

type PortionPlan struct {
	Optimal       PortionOption      `json:"optimal"`
	Compatibility MacroCompatibility `json:"compatibility"`
	Alternatives  []PortionOption    `json:"alternatives"`
}
