package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidSortField indicates a list was requested with a field outside the allowlist.
	ErrInvalidSortField = errors.New("invalid sort field")

	// ErrInvalidSortOrder indicates a sort order other than asc or desc.
	ErrInvalidSortOrder = errors.New("invalid sort order")

	// ErrInvalidWorkflowID indicates an id that cannot be used as a storage key.
	ErrInvalidWorkflowID = errors.New("invalid workflow id")

	// ErrUnsupportedScheme indicates a persistence URL no backend understands.
	ErrUnsupportedScheme = errors.New("unsupported persistence scheme")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "Load", "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	if e.WorkflowID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// NewInvalidSortFieldError creates an error for a rejected sort field.
func NewInvalidSortFieldError(field string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSortField, field)
}

// NewInvalidSortOrderError creates an error for a rejected sort order.
func NewInvalidSortOrderError(order string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSortOrder, order)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInvalidSortField checks if an error indicates an invalid sort field.
func IsInvalidSortField(err error) bool {
	return errors.Is(err, ErrInvalidSortField)
}

// IsInvalidSortOrder checks if an error indicates an invalid sort order.
func IsInvalidSortOrder(err error) bool {
	return errors.Is(err, ErrInvalidSortOrder)
}

// IsInvalidWorkflowID checks if an error indicates an unusable workflow id.
func IsInvalidWorkflowID(err error) bool {
	return errors.Is(err, ErrInvalidWorkflowID)
}
