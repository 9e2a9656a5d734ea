// internal/workers/recommendation/get-recommendations/models.go
package getrecommendations

import (
	"time"

	"mindfork-recommender/internal/common/validation"
	"mindfork-recommender/internal/models"
)

type Input struct {
	UserID     string           `json:"userId"`
	Date       string           `json:"date,omitempty"`
	TimeOfDay  models.TimeOfDay `json:"timeOfDay,omitempty"`
	MealType   models.MealType  `json:"mealType,omitempty"`
	MaxResults int              `json:"maxResults,omitempty"`
}

func (i *Input) Request() models.RecommendationRequest {
	return models.RecommendationRequest{
		UserID:     i.UserID,
		Date:       i.Date,
		TimeOfDay:  i.TimeOfDay,
		MealType:   i.MealType,
		MaxResults: i.MaxResults,
	}
}

type Output struct {
	Recommendations []models.FoodRecommendation `json:"recommendations"`
	Source          models.RecommendationSource `json:"recommendationSource"`
	ContextHash     string                      `json:"contextHash,omitempty"`
	GeneratedAt     time.Time                   `json:"generatedAt"`
}

func (o *Output) Variables() map[string]interface{} {
	vars := map[string]interface{}{
		"recommendations":      o.Recommendations,
		"recommendationSource": string(o.Source),
		"recommendationCount":  len(o.Recommendations),
		"generatedAt":          o.GeneratedAt.Format(time.RFC3339),
	}
	if o.ContextHash != "" {
		vars["contextHash"] = o.ContextHash
	}
	return vars
}

// Process variables other than these pass through untouched.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["userId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1, "maxLength": 128},
		"date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"timeOfDay": {"type": "string", "enum": ["morning", "afternoon", "evening", "night"]},
		"mealType": {"type": "string", "enum": ["breakfast", "lunch", "dinner", "snack"]},
		"maxResults": {"type": "integer", "minimum": 1, "maximum": 50}
	}
}`)
