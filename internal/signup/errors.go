// internal/signup/errors.go
//
// Error taxonomy for the signup controller.  None of these is fatal: every
// path leaves the form editable.  User errors (syntax, taken, validation,
// rejection) are told apart from transport errors with the Is* helpers.

package signup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yanizio/brunch/internal/form"
)

var (
	// ErrDuplicateTaken reports a check that found the value registered.  A
	// new check is only possible after an edit.
	ErrDuplicateTaken = errors.New("signup: value already registered")
	// ErrStaleResult reports a check answer that arrived after the value
	// changed.  The answer was dropped.
	ErrStaleResult = errors.New("signup: stale duplicate-check result dropped")
	// ErrSubmitInFlight is returned by Submit while a registration is running.
	ErrSubmitInFlight = errors.New("signup: submission already in flight")
)

// SyntaxError reports a value that fails its field rule.
type SyntaxError struct {
	Field  form.FieldName
	Reason form.ErrorKind
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("signup: %s invalid (%s)", e.Field, e.Reason)
}

// CheckTransportError wraps a failed duplicate lookup.
type CheckTransportError struct {
	Field form.FieldName
	Err   error
}

func (e *CheckTransportError) Error() string {
	return fmt.Sprintf("signup: duplicate check for %s failed: %v", e.Field, e.Err)
}

func (e *CheckTransportError) Unwrap() error { return e.Err }

// SubmitTransportError wraps a registration call that never got an answer.
type SubmitTransportError struct {
	Err error
}

func (e *SubmitTransportError) Error() string {
	return fmt.Sprintf("signup: registration unreachable: %v", e.Err)
}

func (e *SubmitTransportError) Unwrap() error { return e.Err }

// SubmitRejectedError is a registration the server refused.  Field is set
// when the message named a checkable field.
type SubmitRejectedError struct {
	Message string
	Field   form.FieldName
}

func (e *SubmitRejectedError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("signup: registration rejected on %s: %s", e.Field, e.Message)
	}
	return "signup: registration rejected: " + e.Message
}

// FieldError is one blocking problem found by Submit.
type FieldError struct {
	Field   form.FieldName `json:"field"`
	Reason  form.ErrorKind `json:"reason,omitempty"`
	Message string         `json:"message"`
}

// ValidationError lists every field that kept Submit from calling the
// registrar.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f.Field)
	}
	return "signup: form not ready: " + strings.Join(names, ", ")
}

// IsValidationError reports whether err is a user-correctable form problem.
func IsValidationError(err error) bool {
	var (
		ve *ValidationError
		se *SyntaxError
	)
	return errors.As(err, &ve) || errors.As(err, &se)
}

// IsTransportError reports whether err came from an unreachable directory or
// registrar.
func IsTransportError(err error) bool {
	var (
		ce *CheckTransportError
		te *SubmitTransportError
	)
	return errors.As(err, &ce) || errors.As(err, &te)
}
