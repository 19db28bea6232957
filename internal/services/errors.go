package services

import "fmt"

// Stable error codes surfaced at the API boundary.
const (
	CodeTimestampExpired    = "TIMESTAMP_EXPIRED"
	CodeInvalidMerchant     = "INVALID_MERCHANT"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
	CodeInvalidTokenChain   = "INVALID_TOKEN_CHAIN"
	CodeDuplicateRef        = "DUPLICATE_REF"
	CodeNoAvailableAddress  = "NO_AVAILABLE_ADDRESS"
	CodeAmountTooSmall      = "AMOUNT_TOO_SMALL"
	CodeInvalidAddress      = "INVALID_ADDRESS"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
)

// APIError is a request-time failure with a stable code. Raw internal
// errors never cross the API boundary.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a coded request-time error.
func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// AsAPIError extracts an APIError if err carries one.
func AsAPIError(err error) (*APIError, bool) {
	apiErr, ok := err.(*APIError)
	return apiErr, ok
}
