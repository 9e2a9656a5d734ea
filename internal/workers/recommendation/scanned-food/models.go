// internal/workers/recommendation/scanned-food/models.go
package scannedfood

import (
	"mindfork-recommender/internal/common/validation"
	"mindfork-recommender/internal/models"
)

type Input struct {
	UserID string `json:"userId"`
	FoodID string `json:"foodId"`
}

type Output struct {
	Result *models.ScannedFoodResult
}

func (o *Output) Variables() map[string]interface{} {
	r := o.Result
	return map[string]interface{}{
		"scannedFood":          r.Recommendation,
		"compatibility":        r.Compatibility,
		"preferenceCheck":      r.Preference,
		"mindforkScore":        r.MindFork,
		"betterAlternatives":   r.Alternatives,
		"isCompatible":         r.Preference.IsCompatible,
		"hasBetterAlternative": len(r.Alternatives) > 0,
	}
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["userId", "foodId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1, "maxLength": 128},
		"foodId": {"type": "string", "minLength": 1, "maxLength": 128}
	}
}`)
