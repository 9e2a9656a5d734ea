// Package errors provides the structured error type shared by the engine,
// the stores and the job workers, and its mapping onto BPMN errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Lookup / domain errors
	ErrCodeFetch          ErrorCode = "FETCH_ERROR"
	ErrCodeGoalsNotSet    ErrorCode = "GOALS_NOT_SET"
	ErrCodeProfileMissing ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"

	// Storage
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheReadFailed          ErrorCode = "CACHE_READ_FAILED"
	ErrCodeCacheWriteFailed         ErrorCode = "CACHE_WRITE_FAILED"

	// Search
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	// Upstream services
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"

	// Pipeline
	ErrCodeRecommendationFailed ErrorCode = "RECOMMENDATION_FAILED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewScannedFoodNotFoundError is the one lookup failure that reaches callers
// of the scanned-food path.
func NewScannedFoodNotFoundError(foodID string) *StandardError {
	return newError(ErrCodeFetch, "Scanned food not found", fmt.Sprintf("foodId: %s", foodID), false, nil)
}

func NewFetchError(what string, err error) *StandardError {
	return newError(ErrCodeFetch, fmt.Sprintf("Failed to fetch %s", what), errDetails(err), false, err)
}

func NewGoalsNotSetError(userID string) *StandardError {
	return newError(ErrCodeGoalsNotSet, "Daily calorie goal is not set", fmt.Sprintf("userId: %s", userID), false, nil)
}

func NewProfileNotFoundError(userID string) *StandardError {
	return newError(ErrCodeProfileMissing, "User profile not found", fmt.Sprintf("userId: %s", userID), false, nil)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", errDetails(err), true, err)
}

func NewDatabaseQueryFailedError(queryName string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed",
		fmt.Sprintf("query: %s, error: %s", queryName, errDetails(err)), true, err)
}

func NewDatabaseInsertFailedError(table string, err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed",
		fmt.Sprintf("table: %s, error: %s", table, errDetails(err)), true, err)
}

func NewCacheReadFailedError(tier string, err error) *StandardError {
	return newError(ErrCodeCacheReadFailed, "Cache read failed",
		fmt.Sprintf("tier: %s, error: %s", tier, errDetails(err)), true, err)
}

func NewCacheWriteFailedError(tier string, err error) *StandardError {
	return newError(ErrCodeCacheWriteFailed, "Cache write failed",
		fmt.Sprintf("tier: %s, error: %s", tier, errDetails(err)), true, err)
}

func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", errDetails(err), true, err)
}

func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, errDetails(err)), true, err)
}

func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found", fmt.Sprintf("indexName: %s", indexName), false, nil)
}

func NewRecommendationFailedError(stage string, err error) *StandardError {
	return newError(ErrCodeRecommendationFailed, "Recommendation pipeline failed",
		fmt.Sprintf("stage: %s, error: %s", stage, errDetails(err)), false, err)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), errDetails(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), errDetails(err), true, err)
}

// ==========================
// 4. Inspection helpers
// ==========================

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether any StandardError in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// ==========================
// 5. BPMN mapping
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeFetch:                         "FOOD_NOT_FOUND",
	ErrCodeGoalsNotSet:                   "GOALS_NOT_SET",
	ErrCodeProfileMissing:                "PROFILE_NOT_FOUND",
	ErrCodeInvalidInput:                  "INVALID_INPUT",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseQueryFailed:           "DATABASE_QUERY_FAILED",
	ErrCodeDatabaseInsertFailed:          "DATABASE_INSERT_FAILED",
	ErrCodeCacheReadFailed:               "CACHE_READ_FAILED",
	ErrCodeCacheWriteFailed:              "CACHE_WRITE_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeIndexNotFound:                 "INDEX_NOT_FOUND",
	ErrCodeRecommendationFailed:          "RECOMMENDATION_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	case ErrCodeCacheReadFailed,
		ErrCodeCacheWriteFailed:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "FETCH") || strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "GOALS"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
