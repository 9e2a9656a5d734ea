// internal/models/nutrients.go
package models

import "time"

type DeficiencyImportance string

const (
	ImportanceCritical DeficiencyImportance = "critical"
	ImportanceModerate DeficiencyImportance = "moderate"
	ImportanceMinor    DeficiencyImportance = "minor"
)

// Rank orders importances, critical first.
func (i DeficiencyImportance) Rank() int {
	switch i {
	case ImportanceCritical:
		return 3
	case ImportanceModerate:
		return 2
	default:
		return 1
	}
}

type NutrientDeficiency struct {
	Nutrient       string               `json:"nutrient"`
	Current        float64              `json:"current"`
	Target         float64              `json:"target"`
	Unit           string               `json:"unit"`
	DeficitPercent float64              `json:"deficitPercent"`
	Importance     DeficiencyImportance `json:"importance"`
}

type NutrientExcess struct {
	Nutrient   string  `json:"nutrient"`
	Current    float64 `json:"current"`
	UpperLimit float64 `json:"upperLimit"`
	Unit       string  `json:"unit"`
}

// NutrientGapAnalysis is computed per (user, date).
type NutrientGapAnalysis struct {
	UserID            string               `json:"userId"`
	Date              string               `json:"date"`
	Deficiencies      []NutrientDeficiency `json:"deficiencies"`
	Overconsumption   []NutrientExcess     `json:"overconsumption"`
	BalanceScore      float64              `json:"balanceScore"`
	Recommendations   []string             `json:"recommendations"`
	PriorityNutrients []string             `json:"priorityNutrients"`
	Intake            map[string]float64   `json:"intake,omitempty"`
	AnalyzedAt        time.Time            `json:"analyzedAt"`
}

type NutrientRichFood struct {
	FoodName        string  `json:"foodName"`
	Nutrient        string  `json:"nutrient"`
	AmountPer100g   float64 `json:"amountPer100g"`
	Unit            string  `json:"unit"`
	PercentOfTarget float64 `json:"percentOfTarget"`
}

type NutrientCombination struct {
	Foods                 []string `json:"foods"`
	Nutrients             []string `json:"nutrients"`
	Synergy               string   `json:"synergy"`
	PreparationSuggestion string   `json:"preparationSuggestion"`
}
