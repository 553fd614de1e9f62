package template

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes template runtime errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a caller-supplied shape mismatch.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeNullReference indicates a required argument or element is nil.
	ErrCodeNullReference ErrorCode = "NULL_REFERENCE"

	// ErrCodeLinkage indicates specialization failed for structural reasons.
	ErrCodeLinkage ErrorCode = "LINKAGE"

	// ErrCodeInternalLinkage indicates a specialized procedure failed while running.
	ErrCodeInternalLinkage ErrorCode = "INTERNAL_LINKAGE"
)

// Sentinels for errors.Is matching against *Error values.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNullReference   = errors.New("null reference")
	ErrLinkage         = errors.New("linkage error")
	ErrInternalLinkage = errors.New("internal linkage error")
)

// Error is a template runtime error.
//
// INVALID_ARGUMENT and NULL_REFERENCE are raised at the point of
// construction or combination and are recoverable by the caller.
// LINKAGE and INTERNAL_LINKAGE indicate a runtime defect.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failing operation (e.g. "Of", "Combine", "Site").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Code == ErrCodeInvalidArgument
	case ErrNullReference:
		return e.Code == ErrCodeNullReference
	case ErrLinkage:
		return e.Code == ErrCodeLinkage
	case ErrInternalLinkage:
		return e.Code == ErrCodeInternalLinkage
	}
	return false
}

// IsInvalidArgument returns true if err is an INVALID_ARGUMENT error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsNullReference returns true if err is a NULL_REFERENCE error.
func IsNullReference(err error) bool {
	return hasCode(err, ErrCodeNullReference)
}

// IsLinkageError returns true if err is a LINKAGE error.
func IsLinkageError(err error) bool {
	return hasCode(err, ErrCodeLinkage)
}

// IsInternalLinkageError returns true if err is an INTERNAL_LINKAGE error.
func IsInternalLinkageError(err error) bool {
	return hasCode(err, ErrCodeInternalLinkage)
}

func hasCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// NewInvalidArgument creates an INVALID_ARGUMENT error.
func NewInvalidArgument(op, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewNullReference creates a NULL_REFERENCE error naming the missing argument.
func NewNullReference(op, what string) *Error {
	return &Error{Code: ErrCodeNullReference, Op: op, Message: what + " must not be nil"}
}

// NewLinkageError creates a LINKAGE error wrapping cause.
func NewLinkageError(op, message string, cause error) *Error {
	return &Error{Code: ErrCodeLinkage, Op: op, Message: message, Err: cause}
}

// NewInternalLinkageError creates an INTERNAL_LINKAGE error wrapping cause.
func NewInternalLinkageError(op, message string, cause error) *Error {
	return &Error{Code: ErrCodeInternalLinkage, Op: op, Message: message, Err: cause}
}
