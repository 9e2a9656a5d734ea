// internal/models/food.go
package models

import "math"

// NutritionPer100g is the macro profile of a food per 100 g. Sugar and
// sodium are optional in the source data.
type NutritionPer100g struct {
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
	Fiber    float64  `json:"fiber"`
	Sugar    *float64 `json:"sugar,omitempty"`
	Sodium   *float64 `json:"sodium,omitempty"`
}

// FoodItem is immutable reference data sourced from the food catalog.
type FoodItem struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Category           string           `json:"category,omitempty"`
	NutritionPer100g   NutritionPer100g `json:"nutritionPer100g"`
	TypicalServingSize *float64         `json:"typicalServingSize,omitempty"`
	ServingUnit        string           `json:"servingUnit,omitempty"`
}

// PortionNutrition is the nutrition of a concrete portion.
type PortionNutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// Scale returns the nutrition of grams of the food.
func (n NutritionPer100g) Scale(grams float64) PortionNutrition {
	f := grams / 100
	return PortionNutrition{
		Calories: n.Calories * f,
		Protein:  n.Protein * f,
		Carbs:    n.Carbs * f,
		Fat:      n.Fat * f,
		Fiber:    n.Fiber * f,
	}
}

func (n NutritionPer100g) SugarOrZero() float64 {
	if n.Sugar == nil {
		return 0
	}
	return *n.Sugar
}

// Valid reports whether every macro is a finite, non-negative number.
func (n NutritionPer100g) Valid() bool {
	for _, v := range []float64{n.Calories, n.Protein, n.Carbs, n.Fat, n.Fiber, n.SugarOrZero()} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ServingGrams returns the typical serving size, or 100 g when unknown.
func (f FoodItem) ServingGrams() float64 {
	if f.TypicalServingSize != nil && *f.TypicalServingSize > 0 {
		return *f.TypicalServingSize
	}
	return 100
}

// CacheKey identifies the food for per-food caches.
func (f FoodItem) CacheKey() string {
	if f.ID != "" {
		return f.ID
	}
	return f.Name
}

// Float64 returns a pointer to v, for optional nutrition fields.
func Float64(v float64) *float64 {
	return &v
}
