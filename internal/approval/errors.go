package approval

import (
	"errors"

	"github.com/ksred/watchdog/pkg/response"
)

var (
	ErrInvalidRow      = errors.New("invalid row number")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidPassword = errors.New("invalid password")
	ErrFlagExists      = errors.New("flag already exists")
	ErrWriteFailed     = errors.New("failed to write queue")
	ErrPartialPromote  = errors.New("promoted but not removed from source")
)

// Kind classifies a failed action for the HTTP layer
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindIO         Kind = "io"
)

// Error is returned by every Service action that fails. Message is the
// text the operator sees.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Code maps the kind onto a response error code
func (e *Error) Code() string {
	switch e.Kind {
	case KindValidation:
		return response.ErrCodeValidationFailed
	case KindConflict:
		return response.ErrCodeDuplicateResource
	case KindAuth:
		return response.ErrCodeUnauthorized
	default:
		return response.ErrCodeInternalError
	}
}

func validationError(message string, err error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: err}
}

func ioError(message string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Err: errors.Join(ErrWriteFailed, err)}
}
