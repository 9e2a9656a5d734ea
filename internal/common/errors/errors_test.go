package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannedFoodNotFound(t *testing.T) {
	err := NewScannedFoodNotFoundError("food-42")

	assert.Equal(t, ErrCodeFetch, err.Code)
	assert.Equal(t, "Scanned food not found", err.Message)
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Error(), "FETCH_ERROR")
	assert.Contains(t, err.Details, "food-42")
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	base := NewGoalsNotSetError("user-1")
	wrapped := fmt.Errorf("remaining targets: %w", base)

	assert.True(t, HasCode(wrapped, ErrCodeGoalsNotSet))
	assert.False(t, HasCode(wrapped, ErrCodeFetch))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeFetch))
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewDatabaseQueryFailedError("load_profile", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, err.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"fetch error is not retried", NewScannedFoodNotFoundError("x"), "FOOD_NOT_FOUND", 0},
		{"query failure retried three times", NewDatabaseQueryFailedError("q", stderrors.New("boom")), "DATABASE_QUERY_FAILED", 3},
		{"cache write retried once", NewCacheWriteFailedError("redis", stderrors.New("boom")), "CACHE_WRITE_FAILED", 1},
		{"unmapped code falls back to itself", &StandardError{Code: "SOMETHING_ELSE", Retryable: true}, "SOMETHING_ELSE", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseInsertFailed))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheReadFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexNotFound))
	assert.Equal(t, "LOOKUP", GetErrorCategory(ErrCodeFetch))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestNormalizeError(t *testing.T) {
	std := normalizeError(fmt.Errorf("wrapped: %w", NewInvalidInputError("userId missing")))
	require.NotNil(t, std)
	assert.Equal(t, ErrCodeInvalidInput, std.Code)

	plain := normalizeError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}
