package commons

import (
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
)

// APIError is the error body shared by the ledger and transfer services.
type APIError struct {
	Code      domain.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

func ErrorResponse(code domain.ErrorCode, message string) APIError {
	return APIError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorFrom builds the body and status for err. Unclassified errors never leak
// their message.
func ErrorFrom(err error) (int, APIError) {
	code := domain.CodeOf(err)
	message := err.Error()
	if code == domain.CodeServerError {
		message = "An unexpected error occurred"
	}
	return domain.HTTPStatus(code), ErrorResponse(code, message)
}
