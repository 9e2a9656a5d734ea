// internal/models/preferences.go
package models

// DietType selects a row of the diet rule table.
type DietType string

const (
	DietMindFork      DietType = "mindfork"
	DietVegan         DietType = "vegan"
	DietVegetarian    DietType = "vegetarian"
	DietKeto          DietType = "keto"
	DietPaleo         DietType = "paleo"
	DietMediterranean DietType = "mediterranean"
	DietLowCarb       DietType = "low_carb"
	DietHighProtein   DietType = "high_protein"
)

type RestrictionSeverity string

const (
	SeverityStrict   RestrictionSeverity = "strict"
	SeverityModerate RestrictionSeverity = "moderate"
	SeverityMild     RestrictionSeverity = "mild"
)

// CustomRestriction is a user-defined rule; Keywords default to Name.
type CustomRestriction struct {
	Name     string              `json:"name"`
	Keywords []string            `json:"keywords,omitempty"`
	Severity RestrictionSeverity `json:"severity"`
}

// UserDietaryPreferences is owned by the user profile and read-only here.
type UserDietaryPreferences struct {
	DietType             DietType            `json:"dietType"`
	FoodExclusions       []string            `json:"foodExclusions,omitempty"`
	Allergens            []string            `json:"allergens,omitempty"`
	CulturalRestrictions []string            `json:"culturalRestrictions,omitempty"`
	CustomRestrictions   []CustomRestriction `json:"customRestrictions,omitempty"`
	DislikedIngredients  []string            `json:"dislikedIngredients,omitempty"`
	PreferredCuisines    []string            `json:"preferredCuisines,omitempty"`
}

// PreferenceCheck is the outcome of checking one food against preferences.
type PreferenceCheck struct {
	FoodID        string   `json:"foodId"`
	IsCompatible  bool     `json:"isCompatible"`
	Score         float64  `json:"score"`
	Violations    []string `json:"violations"`
	Warnings      []string `json:"warnings,omitempty"`
	Substitutions []string `json:"substitutions,omitempty"`
	CuisineMatch  string   `json:"cuisineMatch,omitempty"`
}
