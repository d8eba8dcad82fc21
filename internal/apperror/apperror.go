package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it (HTTP mapping,
// job retry decisions, bulk skip reasons).
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindTransaction  Kind = "transaction_failure"
	KindInternal     Kind = "internal_error"
)

// Error is a classified error. Domain packages declare sentinels with the
// constructors below and compare them with errors.Is.
type Error struct {
	Kind  Kind
	Code  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code, field string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field}
}

func NotFound(code string) *Error {
	return &Error{Kind: KindNotFound, Code: code}
}

func Conflict(code string) *Error {
	return &Error{Kind: KindConflict, Code: code}
}

func Unauthorized(code string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code}
}

var ErrTransaction = &Error{Kind: KindTransaction, Code: "transaction_failure"}

// Transaction wraps an error that aborted a store transaction. Errors that are
// already classified pass through untouched so domain failures keep their kind.
func Transaction(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: KindTransaction, Code: ErrTransaction.Code, Err: err}
}

// Is reports sentinel identity, and also matches ErrTransaction for any
// transaction failure produced by Transaction.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrTransaction {
		return e.Kind == KindTransaction
	}
	return e == t
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first classified error in the chain.
func CodeOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Code
	}
	return string(KindInternal)
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Field
	}
	return ""
}
