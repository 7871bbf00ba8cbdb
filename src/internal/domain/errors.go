package domain

import (
	"errors"
	"net/http"
)

var ErrRecordNotFound = errors.New("Record not found")
var ErrDuplicateKey = errors.New("Duplicate key")

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrOptimisticConflict = errors.New("optimistic conflict")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUnavailable        = errors.New("unavailable")
	ErrInternal           = errors.New("internal error")
)

type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeValidation         ErrorCode = "VALIDATION"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeOptimisticConflict ErrorCode = "OPTIMISTIC_CONFLICT"
	CodeInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	CodeUnavailable        ErrorCode = "UNAVAILABLE"
	CodeServerError        ErrorCode = "SERVER_ERROR"
)

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func Validation(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

func Conflict(message string, cause error) error {
	return &Error{Kind: ErrConflict, Message: message, Err: cause}
}

func OptimisticConflict(message string) error {
	return &Error{Kind: ErrOptimisticConflict, Message: message}
}

func InsufficientFunds(message string) error {
	return &Error{Kind: ErrInsufficientFunds, Message: message}
}

func Unavailable(message string, cause error) error {
	return &Error{Kind: ErrUnavailable, Message: message, Err: cause}
}

func Internal(message string, cause error) error {
	return &Error{Kind: ErrInternal, Message: message, Err: cause}
}

// CodeOf maps an error to its wire code. Unclassified errors are SERVER_ERROR.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var domainErr *Error
	if errors.As(err, &domainErr) {
		err = domainErr.Kind
	}

	switch {
	case errors.Is(err, ErrOptimisticConflict):
		return CodeOptimisticConflict
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeServerError
	}
}

func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeInsufficientFunds:
		return http.StatusBadRequest
	case CodeConflict, CodeOptimisticConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromCode rebuilds a typed error from a wire code. SERVER_ERROR and unknown
// codes return nil so callers can treat them as infrastructure failures.
func FromCode(code ErrorCode, message string) error {
	switch code {
	case CodeNotFound:
		return NotFound(message)
	case CodeValidation:
		return Validation(message)
	case CodeConflict:
		return Conflict(message, nil)
	case CodeOptimisticConflict:
		return OptimisticConflict(message)
	case CodeInsufficientFunds:
		return InsufficientFunds(message)
	case CodeUnavailable:
		return Unavailable(message, nil)
	default:
		return nil
	}
}

// IsBusiness reports whether err is a domain outcome that must reach the
// caller unchanged: the downstream answered, the request was just refused.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrOptimisticConflict) ||
		errors.Is(err, ErrInsufficientFunds)
}
