// Package errors provides the typed failure taxonomy of the discovery core and
// its mapping onto BPMN errors for the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeValidationFailed marks malformed caller input. Never retried.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Engine failures: the index backend is unreachable or erroring.
	ErrCodeEngineFailure ErrorCode = "ENGINE_FAILURE"
	ErrCodeEngineTimeout ErrorCode = "ENGINE_TIMEOUT"
	ErrCodeIndexNotFound ErrorCode = "INDEX_NOT_FOUND"

	// ErrCodeCacheFailure is non-fatal; it is logged and the cache bypassed.
	ErrCodeCacheFailure ErrorCode = "CACHE_FAILURE"

	// ErrCodeRecommendationDegraded is not surfaced as an error; it tags
	// recommendation results produced by the popularity fallback.
	ErrCodeRecommendationDegraded ErrorCode = "RECOMMENDATION_DEGRADED"

	ErrCodeInteractionLogFailure ErrorCode = "INTERACTION_LOG_FAILURE"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
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
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
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

func newError(code ErrorCode, message string, retryable bool, cause error) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
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

// NewValidationError creates a non-retryable validation failure.
func NewValidationError(message, details string) *StandardError {
	se := newError(ErrCodeValidationFailed, message, false, nil)
	se.Details = details
	return se
}

// NewFieldValidationError creates a validation failure carrying per-field reasons.
func NewFieldValidationError(fields map[string]string) *StandardError {
	keys := make([]string, 0, len(fields))
	for field, reason := range fields {
		keys = append(keys, field+": "+reason)
	}
	sort.Strings(keys)
	se := NewValidationError("request validation failed", strings.Join(keys, "; "))
	meta := make(map[string]interface{}, len(fields))
	for field, reason := range fields {
		meta[field] = reason
	}
	se.Metadata = map[string]interface{}{"fields": meta}
	return se
}

// NewEngineFailureError creates a retryable index backend failure.
func NewEngineFailureError(operation string, err error) *StandardError {
	return newError(ErrCodeEngineFailure, fmt.Sprintf("search engine %s failed", operation), true, err).
		WithMetadata("operation", operation)
}

// NewEngineTimeoutError creates a retryable index backend timeout.
func NewEngineTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeEngineTimeout, fmt.Sprintf("search engine %s timed out", operation), true, err).
		WithMetadata("operation", operation)
}

// NewIndexNotFoundError creates a non-retryable missing index error.
func NewIndexNotFoundError(indexName string) *StandardError {
	se := newError(ErrCodeIndexNotFound, "Search index not found", false, nil)
	se.Details = fmt.Sprintf("Index: %s", indexName)
	return se
}

// NewCacheFailureError wraps a cache store error. It is logged, never surfaced.
func NewCacheFailureError(operation string, err error) *StandardError {
	return newError(ErrCodeCacheFailure, fmt.Sprintf("cache %s failed", operation), false, err)
}

// NewInteractionLogFailureError creates a retryable interaction log error.
func NewInteractionLogFailureError(operation string, err error) *StandardError {
	return newError(ErrCodeInteractionLogFailure, fmt.Sprintf("interaction log %s failed", operation), true, err)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), true, err)
}

// ==========================
// 4. Inspection
// ==========================

// As returns the StandardError in err's chain, if any.
func As(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the code of the StandardError in err's chain, or
// ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ErrCodeInternal
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidationFailed
}

// IsRetryable reports whether err is a typed retryable failure.
func IsRetryable(err error) bool {
	if se, ok := As(err); ok {
		return se.Retryable
	}
	return false
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:      "VALIDATION_FAILED",
	ErrCodeEngineFailure:         "SEARCH_ENGINE_FAILURE",
	ErrCodeEngineTimeout:         "SEARCH_ENGINE_TIMEOUT",
	ErrCodeIndexNotFound:         "INDEX_NOT_FOUND",
	ErrCodeInteractionLogFailure: "INTERACTION_LOG_FAILURE",
	ErrCodeExternalService:       "EXTERNAL_SERVICE_ERROR",
	ErrCodeTimeout:               "TIMEOUT_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEngineFailure,
		ErrCodeInteractionLogFailure,
		ErrCodeExternalService:
		return 3

	case ErrCodeEngineTimeout,
		ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
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

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "ENGINE") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "RECOMMENDATION"):
		return "RECOMMENDATION"
	case strings.Contains(codeStr, "INTERACTION"):
		return "INTERACTION"
	default:
		return "OTHER"
	}
}
