package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["userId"],
  "properties": {
    "userId": {"type": "string", "minLength": 1},
    "mealType": {"type": "string", "enum": ["breakfast", "lunch", "dinner", "snack"]},
    "maxResults": {"type": "integer", "minimum": 1, "maximum": 50}
  }
}`

func TestSchema_Validate(t *testing.T) {
	schema, err := Compile(testSchema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     map[string]interface{}
		wantValid bool
		wantField string
		wantCode  string
	}{
		{
			name:      "valid",
			input:     map[string]interface{}{"userId": "u1", "mealType": "lunch", "maxResults": 5},
			wantValid: true,
		},
		{
			name:      "missing user",
			input:     map[string]interface{}{"mealType": "lunch"},
			wantField: "userId",
			wantCode:  "REQUIRED_FIELD_MISSING",
		},
		{
			name:      "bad enum",
			input:     map[string]interface{}{"userId": "u1", "mealType": "brunch"},
			wantField: "mealType",
			wantCode:  "INVALID_ENUM_VALUE",
		},
		{
			name:      "out of range",
			input:     map[string]interface{}{"userId": "u1", "maxResults": 500},
			wantField: "maxResults",
			wantCode:  "OUT_OF_RANGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.input)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.True(t, result.HasErrors(tt.wantField), result.Summary())
				assert.Equal(t, tt.wantCode, result.Errors[0].Code)
			}
		})
	}
}

func TestCompile_RejectsBrokenSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`{`) })
}
