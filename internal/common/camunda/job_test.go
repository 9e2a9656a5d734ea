package camunda

import (
	stderrors "errors"
	"testing"

	"mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["userId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"maxResults": {"type": "integer", "minimum": 1}
	}
}`)

func jobWith(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       42,
		Type:      "get-food-recommendations",
		Variables: variables,
	}}
}

func TestDecodeVariables(t *testing.T) {
	var dst struct {
		UserID     string `json:"userId"`
		MaxResults int    `json:"maxResults"`
	}

	err := DecodeVariables(jobWith(`{"userId":"u1","maxResults":5,"processVar":true}`), userSchema, &dst)

	require.NoError(t, err)
	assert.Equal(t, "u1", dst.UserID)
	assert.Equal(t, 5, dst.MaxResults)
}

func TestDecodeVariables_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		contains  string
	}{
		{name: "not json", variables: `not-json`, contains: "not a JSON object"},
		{name: "missing user", variables: `{"maxResults":5}`, contains: "userId"},
		{name: "wrong type", variables: `{"userId":"u1","maxResults":"five"}`, contains: "maxResults"},
		{name: "out of range", variables: `{"userId":"u1","maxResults":0}`, contains: "maxResults"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst map[string]interface{}
			err := DecodeVariables(jobWith(tt.variables), userSchema, &dst)

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "GOALS_NOT_SET", ErrorCode(errors.NewGoalsNotSetError("u1")))
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(stderrors.New("boom")))
}
