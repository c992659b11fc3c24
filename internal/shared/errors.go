package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the targeted record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates caller supplied input outside the accepted set.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrPersistence indicates the store failed for a reason not otherwise classified.
	ErrPersistence = errors.New("persistence failure")
	// ErrForbidden indicates the actor lacks the required grant.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates no actor identity was supplied.
	ErrUnauthorized = errors.New("unauthorized")
)

const genericFailureMessage = "Something went wrong, please try again"

// Error carries an error kind and a user facing message across package boundaries.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NotFound builds an ErrNotFound kind error.
func NotFound(op, message string) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: message}
}

// Validation builds an ErrValidation kind error.
func Validation(op, message string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: message}
}

// Conflict builds an ErrConflict kind error.
func Conflict(op, message string, cause error) error {
	return &Error{Kind: ErrConflict, Op: op, Message: message, Err: cause}
}

// Persistence wraps a store failure.
func Persistence(op string, cause error) error {
	return &Error{Kind: ErrPersistence, Op: op, Err: cause}
}

// Forbidden builds an ErrForbidden kind error.
func Forbidden(op, message string) error {
	return &Error{Kind: ErrForbidden, Op: op, Message: message}
}

// Unauthorized builds an ErrUnauthorized kind error.
func Unauthorized(op, message string) error {
	return &Error{Kind: ErrUnauthorized, Op: op, Message: message}
}

// UserSafeMessage returns the message that may be shown to an end user.
// Store failures and unknown errors collapse to a generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrPersistence) {
		return genericFailureMessage
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Kind != nil {
			return e.Kind.Error()
		}
	}
	return genericFailureMessage
}
