package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Workflow-specific errors

var (
	// ErrWorkflowRunning indicates a workflow is already in progress
	ErrWorkflowRunning = errors.New("workflow already running")

	// ErrAgentNotFound indicates an unknown agent name was requested
	ErrAgentNotFound = errors.New("agent not found")

	// ErrStageFailed indicates a pipeline stage returned a failed result
	ErrStageFailed = errors.New("pipeline stage failed")

	// ErrCancelled indicates a run was cancelled by the caller
	ErrCancelled = errors.New("workflow cancelled")
)

// External source errors

var (
	// ErrSourceUnavailable indicates an external data source is unreachable
	ErrSourceUnavailable = errors.New("data source unavailable")

	// ErrNewsNotConfigured indicates the news source was never configured
	ErrNewsNotConfigured = errors.New("news source not configured")

	// ErrLLMUnavailable indicates the LLM provider is unreachable
	ErrLLMUnavailable = errors.New("llm provider unavailable")

	// ErrLLMBadResponse indicates the LLM returned unparseable output
	ErrLLMBadResponse = errors.New("llm response not parseable")

	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
