package core

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Error codes sent to API clients.
const (
	CodeValidation          = "validation_error"
	CodeInvalidDate         = "invalid_date"
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeConflict            = "conflict"
	CodeNoActiveSession     = "no_active_session"
	CodeInsufficientPayment = "insufficient_payment"
	CodeServerError         = "server_error"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Code   string
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Code: CodeValidation, Err: err, Fields: flds}
}

// NewCodedValidationError returns a ValidationError carrying a specific API error code.
func NewCodedValidationError(code, msg string, flds ...FieldError) error {
	return &ValidationError{Code: code, Err: errors.New(msg), Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// AuthError is an unauthenticated (Forbidden == false) or forbidden access attempt.
type AuthError struct {
	Forbidden bool
	Message   string
}

var (
	ErrUnauthenticated = &AuthError{Message: "authentication required"}
	ErrForbidden       = &AuthError{Forbidden: true, Message: "permission denied"}
)

func (err AuthError) Error() string { return err.Message }

type NotFoundError struct {
	Resource string
	ID       interface{}
}

func NewNotFoundError(resource string, id interface{}) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (err NotFoundError) Error() string { return err.Resource + " not found" }

// IsNotFound reports whether the cause of err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type ConflictError struct {
	Code    string
	Message string
}

func NewConflictError(code, msg string) error {
	return &ConflictError{Code: code, Message: msg}
}

func (err ConflictError) Error() string { return err.Message }

// IsConflict reports whether the cause of err is a ConflictError.
func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type NoActiveSessionError struct{}

var ErrNoActiveSession = &NoActiveSessionError{}

func (NoActiveSessionError) Error() string { return "no active academic session found" }

// InsufficientPaymentError is returned when the received amount does not even cover the accrued late fine.
type InsufficientPaymentError struct {
	Received decimal.Decimal
	Fine     decimal.Decimal
}

func (err InsufficientPaymentError) Error() string {
	return fmt.Sprintf(
		"amount received (%s) is less than the accrued late fine (%s)",
		err.Received.StringFixed(2), err.Fine.StringFixed(2),
	)
}

// LogFields carries the context logged along a failure.
type LogFields map[string]interface{}

// PersistenceError is a storage failure. Its details are logged, never sent to clients.
type PersistenceError struct {
	Op     string
	Err    error
	Fields LogFields
}

func NewPersistenceError(err error, op string, fields ...LogFields) error {
	pe := &PersistenceError{Op: op, Err: err}
	if len(fields) > 0 {
		pe.Fields = fields[0]
	}
	return pe
}

func (err PersistenceError) Error() string {
	if err.Err == nil {
		return err.Op
	}
	return err.Op + ": " + err.Err.Error()
}

func (err PersistenceError) Unwrap() error { return err.Err }

// WithFields returns err with fields merged into the context of the PersistenceError it wraps, if any.
func WithFields(err error, fields LogFields) error {
	if pe, ok := errors.Cause(err).(*PersistenceError); ok {
		if pe.Fields == nil {
			pe.Fields = make(LogFields, len(fields))
		}
		for k, v := range fields {
			if _, exists := pe.Fields[k]; !exists {
				pe.Fields[k] = v
			}
		}
	}
	return err
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
