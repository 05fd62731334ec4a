package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors that share the same code so callers can compare against the
// predefined values after Clone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrWeightExceeded     = New("WEIGHT_EXCEEDED", http.StatusUnprocessableEntity, "weight exceeds scope ceiling")
	ErrScopeNotFound      = New("SCOPE_NOT_FOUND", http.StatusNotFound, "scope not found")
	ErrStudentNotFound    = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found")
	ErrDuplicateGrade     = New("DUPLICATE_GRADE", http.StatusConflict, "grade already recorded for student and activity")
	ErrDuplicateActivity  = New("DUPLICATE_ACTIVITY", http.StatusConflict, "activity name already used in subject and term")
	ErrReportRenderFailed = New("REPORT_RENDER_FAILED", http.StatusInternalServerError, "failed to render report")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Details != nil {
		clone.Details = make(map[string]string, len(err.Details))
		for k, v := range err.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}

// WithDetails returns a copy of err carrying the provided key/value details.
func WithDetails(err *Error, details map[string]string) *Error {
	clone := Clone(err, "")
	if clone == nil {
		return nil
	}
	if clone.Details == nil {
		clone.Details = make(map[string]string, len(details))
	}
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}

// WeightExceeded builds the rejection raised when a scope would be overcommitted. The
// message and details both expose the committed total and the ceiling.
func WeightExceeded(currentSum, ceiling decimal.Decimal) *Error {
	msg := fmt.Sprintf("total weight cannot exceed %s%%; current total: %s%%", ceiling.StringFixed(2), currentSum.StringFixed(2))
	return WithDetails(Clone(ErrWeightExceeded, msg), map[string]string{
		"current_sum": currentSum.StringFixed(2),
		"ceiling":     ceiling.StringFixed(2),
	})
}
