package core

import "errors"

// ErrorCode represents a local error identifier.
// Codes returned by an exchange are carried verbatim in ExchangeError.Code instead.
type ErrorCode string

const (
	// ErrCodeTransport indicates a network connectivity failure.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeRateLimit indicates the request weight budget was not available.
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT"
	// ErrCodeNotFound indicates the requested endpoint was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Authentication errors
	ErrCodeNoCredentials ErrorCode = "CREDENTIALS_NOT_AVAILABLE"
	ErrCodeInvalidKey    ErrorCode = "INVALID_KEY"
	ErrCodeInvalidHeader ErrorCode = "INVALID_HEADER"

	ErrCodeSignature ErrorCode = "SIGNATURE_FAILED"
	ErrCodeDecode    ErrorCode = "DECODE_FAILED"

	// Domain errors
	ErrCodeAssetNotFound ErrorCode = "ASSET_NOT_FOUND"
	ErrCodePagination    ErrorCode = "PAGINATION_LOOP"

	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Client state errors
	ErrCodeClientClosed ErrorCode = "CLIENT_CLOSED"
)

// IsErrorCode checks if the error matches the specified error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return ErrorCode(exErr.Code) == code
	}
	return false
}
