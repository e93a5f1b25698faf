package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeAlreadyExists ErrorType = "ALREADY_EXISTS"
	ErrorTypeConcurrent    ErrorType = "CONCURRENT_MODIFICATION"
	ErrorTypeLinked        ErrorType = "LINKED_ENTITIES"
	ErrorTypeMove          ErrorType = "MOVE_IMPOSSIBLE"
	ErrorTypeNoOp          ErrorType = "NO_OP_CHANGE"
	ErrorTypePrecondition  ErrorType = "PRECONDITION_FAILED"
	ErrorTypeRemoved       ErrorType = "REMOVED"

	// Application errors
	ErrorTypeIllegalState ErrorType = "ILLEGAL_STATE"
	ErrorTypeInternal     ErrorType = "INTERNAL"

	// Infrastructure errors
	ErrorTypeDatabase ErrorType = "DATABASE"
)

// AppError represents an application-specific error. Details always carry
// enough identifying data (entity id, observed vs. expected version,
// conflicting value) for a caller to decide whether to retry, force, or
// abort.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// NewNotFoundError creates a not found error for an entity
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details:    map[string]interface{}{"id": id},
		StackTrace: captureStackTrace(),
	}
}

// NewBookExistsError reports that the owning entity already has a book
func NewBookExistsError(ownerID string) *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyExists,
		Message:    fmt.Sprintf("owner %s already has a reference book", ownerID),
		Code:       "BOOK_EXISTS",
		Details:    map[string]interface{}{"owner_id": ownerID},
		StackTrace: captureStackTrace(),
	}
}

// NewChildExistsError reports a live sibling with the same value
func NewChildExistsError(parentID, value string) *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyExists,
		Message:    fmt.Sprintf("item %s already has a child with value %q", parentID, value),
		Code:       "CHILD_EXISTS",
		Details:    map[string]interface{}{"parent_id": parentID, "value": value},
		StackTrace: captureStackTrace(),
	}
}

// NewConcurrentModificationError reports a stale observed version,
// always naming the offending entity
func NewConcurrentModificationError(id string, observed, actual int) *AppError {
	return &AppError{
		Type:       ErrorTypeConcurrent,
		Message:    fmt.Sprintf("entity %s was modified concurrently: observed version %d, actual %d", id, observed, actual),
		Details:    map[string]interface{}{"id": id, "observed_version": observed, "actual_version": actual},
		StackTrace: captureStackTrace(),
	}
}

// NewLinkedEntitiesError reports that a destructive operation is blocked
// by external references to the named items
func NewLinkedEntitiesError(ids []string) *AppError {
	return &AppError{
		Type:       ErrorTypeLinked,
		Message:    fmt.Sprintf("items are linked by external entities: %s", strings.Join(ids, ", ")),
		Details:    map[string]interface{}{"ids": ids},
		StackTrace: captureStackTrace(),
	}
}

// NewMoveImpossibleError reports a move that would break the tree
func NewMoveImpossibleError(sourceID, targetID string) *AppError {
	return &AppError{
		Type:       ErrorTypeMove,
		Message:    fmt.Sprintf("cannot move item %s under %s", sourceID, targetID),
		Details:    map[string]interface{}{"source_id": sourceID, "target_id": targetID},
		StackTrace: captureStackTrace(),
	}
}

// NewIllegalArgumentError creates a structural precondition error
func NewIllegalArgumentError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Code:       "ILLEGAL_ARGUMENT",
		StackTrace: captureStackTrace(),
	}
}

// NewNoOpChangeError reports an update that changes nothing; rejected
// rather than silently succeeding, to avoid spurious history facts
func NewNoOpChangeError(id string) *AppError {
	return &AppError{
		Type:       ErrorTypeNoOp,
		Message:    fmt.Sprintf("proposed change to %s is a no-op", id),
		Details:    map[string]interface{}{"id": id},
		StackTrace: captureStackTrace(),
	}
}

// NewPreconditionFailedError reports an unsatisfied external precondition
func NewPreconditionFailedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypePrecondition,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// NewRemovedError reports a mutation against a deleted entity
func NewRemovedError(id string) *AppError {
	return &AppError{
		Type:       ErrorTypeRemoved,
		Message:    fmt.Sprintf("entity %s is removed and can no longer be changed", id),
		Details:    map[string]interface{}{"id": id},
		StackTrace: captureStackTrace(),
	}
}

// NewIllegalStateError reports a broken internal invariant, e.g. a
// historical event with no payload. Unrecoverable: surfaced as a fault,
// never silently patched.
func NewIllegalStateError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeIllegalState,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StackTrace: captureStackTrace(),
	}
}

// NewDatabaseError wraps a storage-adapter failure
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDatabase,
		Message:    fmt.Sprintf("storage operation '%s' failed", operation),
		Cause:      err,
		StackTrace: captureStackTrace(),
	}
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsAlreadyExists checks if an error is a duplicate error
func IsAlreadyExists(err error) bool {
	return IsType(err, ErrorTypeAlreadyExists)
}

// IsConcurrentModification checks for a stale-version rejection
func IsConcurrentModification(err error) bool {
	return IsType(err, ErrorTypeConcurrent)
}

// IsLinkedEntities checks for a linkage-gated rejection
func IsLinkedEntities(err error) bool {
	return IsType(err, ErrorTypeLinked)
}

// IsMoveImpossible checks for a rejected move
func IsMoveImpossible(err error) bool {
	return IsType(err, ErrorTypeMove)
}

// IsNoOpChange checks for a rejected no-op update
func IsNoOpChange(err error) bool {
	return IsType(err, ErrorTypeNoOp)
}

// IsPreconditionFailed checks for an unsatisfied precondition
func IsPreconditionFailed(err error) bool {
	return IsType(err, ErrorTypePrecondition)
}

// IsRemoved checks for a mutation against a deleted entity
func IsRemoved(err error) bool {
	return IsType(err, ErrorTypeRemoved)
}

// IsIllegalState checks for a broken internal invariant
func IsIllegalState(err error) bool {
	return IsType(err, ErrorTypeIllegalState)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// LinkedIDs extracts the blocking item ids from a LinkedEntities error
func LinkedIDs(err error) []string {
	appErr := GetAppError(err)
	if appErr == nil || appErr.Type != ErrorTypeLinked {
		return nil
	}
	ids, _ := appErr.Details["ids"].([]string)
	return ids
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	// Otherwise create a new internal error
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
