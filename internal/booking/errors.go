package booking

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// Validation error codes. Each names the rule that was violated.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeClientRequired   = "CLIENT_REQUIRED"
	CodeDateRequired     = "DATE_REQUIRED"
	CodeStatusRequired   = "STATUS_REQUIRED"
	CodeInvalidStatus    = "INVALID_STATUS"
	CodeInvalidVolumes   = "INVALID_VOLUMES"
	CodeInvalidTimestamp = "INVALID_TIMESTAMP"
	CodeInvalidIndex     = "INVALID_INDEX"
	CodeFoundingEntry    = "FOUNDING_ENTRY"
	CodeHistoryMinimal   = "HISTORY_MINIMAL"
	CodeSearchTerm       = "SEARCH_TERM_REQUIRED"
)

type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFoundError reports which resource failed to resolve. It matches
// ErrNotFound with errors.Is.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func bookingNotFound(id string) error { return &NotFoundError{Resource: "booking", ID: id} }
