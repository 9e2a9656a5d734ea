// internal/workers/recommendation/record-interaction/models.go
package recordinteraction

import (
	"mindfork-recommender/internal/common/validation"
	"mindfork-recommender/internal/models"
)

type Input struct {
	UserID           string                 `json:"userId"`
	FoodID           string                 `json:"foodId"`
	InteractionType  models.InteractionType `json:"interactionType"`
	RecommendationID string                 `json:"recommendationId,omitempty"`
	Rating           int                    `json:"rating,omitempty"`
	Comment          string                 `json:"comment,omitempty"`
}

// Output carries an empty InteractionID when the audit write failed.
type Output struct {
	InteractionID string
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"interactionId":       o.InteractionID,
		"interactionRecorded": o.InteractionID != "",
	}
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["userId", "foodId", "interactionType"],
	"properties": {
		"userId": {"type": "string", "minLength": 1, "maxLength": 128},
		"foodId": {"type": "string", "minLength": 1, "maxLength": 128},
		"interactionType": {"type": "string", "enum": ["selected", "ignored", "feedback", "viewed"]},
		"recommendationId": {"type": "string", "maxLength": 64},
		"rating": {"type": "integer", "minimum": 1, "maximum": 5},
		"comment": {"type": "string", "maxLength": 1000}
	}
}`)
