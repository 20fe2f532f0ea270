// Package apperror defines the error taxonomy shared by services and handlers
// and the echo error handler that turns it into responses.
package apperror

import (
	"errors"
	"fmt"
)

// Fixed client-facing messages.
const (
	MsgUnauthorized     = "Not authorized"
	MsgNotFound         = "Not found"
	MsgInternal         = "Internal server error"
	MsgWrongCredentials = "Email or password is wrong"
	MsgEmailInUse       = "Email in use"
)

var (
	// ErrUnauthorized collapses every credential failure into one outcome.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound covers both absent resources and resources owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when an authenticated action is not allowed for the account.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports the first field that violated its schema.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError for field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a unique field that is already taken.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Conflict builds a ConflictError.
func Conflict(field, message string) error {
	return &ConflictError{Field: field, Message: message}
}

// Unauthorized wraps the internal reason behind a 401. The reason is only
// logged; the caller always sees MsgUnauthorized.
type Unauthorized struct {
	Reason string
	Err    error
}

func (e *Unauthorized) Error() string {
	if e.Err != nil {
		return "unauthorized: " + e.Reason + ": " + e.Err.Error()
	}
	return "unauthorized: " + e.Reason
}

func (e *Unauthorized) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnauthorized, e.Err}
	}
	return []error{ErrUnauthorized}
}

// UnauthorizedBecause returns an error matching ErrUnauthorized that carries an internal reason.
func UnauthorizedBecause(reason string, err error) error {
	return &Unauthorized{Reason: reason, Err: err}
}

// MessageError attaches a client-facing message to one of the sentinel kinds.
type MessageError struct {
	Kind    error
	Message string
}

func (e *MessageError) Error() string {
	return e.Message
}

func (e *MessageError) Unwrap() error {
	return e.Kind
}

// WithMessage returns an error matching kind whose response body uses message.
func WithMessage(kind error, message string) error {
	return &MessageError{Kind: kind, Message: message}
}
