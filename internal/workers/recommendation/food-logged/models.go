// internal/workers/recommendation/food-logged/models.go
package foodlogged

import "mindfork-recommender/internal/common/validation"

// Input is published after the user logs a meal. Date defaults to today.
type Input struct {
	UserID string `json:"userId"`
	Date   string `json:"date,omitempty"`
}

type Output struct {
	UserID    string
	Date      string
	Refreshed bool
}

func (o *Output) Variables() map[string]interface{} {
	vars := map[string]interface{}{"recommendationsRefreshed": o.Refreshed}
	if o.Date != "" {
		vars["refreshedDate"] = o.Date
	}
	return vars
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["userId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1, "maxLength": 128},
		"date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"}
	}
}`)
