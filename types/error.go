package types

import "fmt"

// ErrorCode represents a unified error code across the research core.
type ErrorCode string

// Planner and executor error codes
const (
	ErrPlannerMalformed    ErrorCode = "PLANNER_MALFORMED"
	ErrTaskFailed          ErrorCode = "TASK_FAILED"
	ErrTaskSkipped         ErrorCode = "TASK_SKIPPED"
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrNoEvidence          ErrorCode = "NO_EVIDENCE"
	ErrClarificationNeeded ErrorCode = "CLARIFICATION_NEEDED"
	ErrInvalidQuery        ErrorCode = "INVALID_QUERY"
)

// Retrieval error codes
const (
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrAllProvidersFailed  ErrorCode = "ALL_PROVIDERS_FAILED"
	ErrRerankUnavailable   ErrorCode = "RERANK_UNAVAILABLE"
	ErrStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
	ErrExtractEmpty        ErrorCode = "EXTRACT_EMPTY"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Provider  string    `json:"provider,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithTask sets the owning task ID.
func (e *Error) WithTask(taskID string) *Error {
	e.TaskID = taskID
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}
