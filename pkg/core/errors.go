package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the category of an exchange error.
type ErrorType int

// Error type constants. Only ErrorTypeRateLimit conditions are ever retried, and
// only by the dispatcher's weight-driven backoff loop.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransport indicates a connection, TLS or timeout failure below HTTP.
	ErrorTypeTransport
	// ErrorTypeAuth indicates missing credentials, bad key material or an unusable header value.
	ErrorTypeAuth
	// ErrorTypeSignature indicates the cryptographic signing operation failed.
	ErrorTypeSignature
	// ErrorTypeDecode indicates a malformed body or a schema mismatch.
	ErrorTypeDecode
	// ErrorTypeRemoteAPI indicates the exchange answered with a non-success status or code.
	ErrorTypeRemoteAPI
	// ErrorTypeDomain indicates a local post-processing failure after a successful decode.
	ErrorTypeDomain
	// ErrorTypeRateLimit indicates the request budget could not be satisfied.
	ErrorTypeRateLimit
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	names := [...]string{
		"UNKNOWN",
		"TRANSPORT",
		"AUTH",
		"SIGNATURE",
		"DECODE",
		"REMOTE_API",
		"DOMAIN",
		"RATE_LIMIT",
	}
	if t < 0 || int(t) >= len(names) {
		return "UNKNOWN"
	}
	return names[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrNoCredentials is returned when a signed call is attempted without credentials.
	ErrNoCredentials = errors.New("credentials not available")
	// ErrInvalidKey is returned when secret material cannot be decoded or parsed.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidHeader is returned when a header value cannot be transmitted.
	ErrInvalidHeader = errors.New("invalid header value")
	// ErrRetriesExhausted is returned when the rate-limit retry bound is reached.
	ErrRetriesExhausted = errors.New("rate limit retries exhausted")
)

// ExchangeError represents a structured error produced while talking to an exchange.
type ExchangeError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code from the response, zero when no response exists.
	StatusCode int `json:"status_code,omitempty"`
	// Code is the exchange-specific or local error code.
	Code string `json:"code,omitempty"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Detail is a best-effort secondary message, such as the first item of an error array.
	Detail string `json:"detail,omitempty"`
	// Path locates the failing field for decode errors.
	Path string `json:"path,omitempty"`
	// Exchange identifies which exchange produced this error.
	Exchange string `json:"exchange"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface for ExchangeError.
func (e *ExchangeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Exchange, e.Type)
	switch {
	case e.StatusCode != 0 && e.Code != "":
		fmt.Fprintf(&b, " (%d/%s)", e.StatusCode, e.Code)
	case e.StatusCode != 0:
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	case e.Code != "":
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Detail != "" {
		b.WriteString(" - ")
		b.WriteString(e.Detail)
	}
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// WithCode sets the error code and returns the error for chaining.
func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// WithDetail sets the secondary message and returns the error for chaining.
func (e *ExchangeError) WithDetail(detail string) *ExchangeError {
	e.Detail = detail
	return e
}

// WithCause sets the wrapped error and returns the error for chaining.
func (e *ExchangeError) WithCause(err error) *ExchangeError {
	e.Err = err
	return e
}

// NewExchangeError creates a new ExchangeError with the specified details.
// The timestamp is automatically set to the current time.
func NewExchangeError(exchange string, errorType ErrorType, statusCode int, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

// NewExchangeErrorWithCode creates a new ExchangeError including an exchange-specific error code.
func NewExchangeErrorWithCode(exchange string, errorType ErrorType, statusCode int, code, message string) *ExchangeError {
	e := NewExchangeError(exchange, errorType, statusCode, message)
	e.Code = code
	return e
}

// NewTransportError wraps a failure from the HTTP transport.
func NewTransportError(exchange string, err error) *ExchangeError {
	code := ErrCodeTransport
	if errors.Is(err, ErrClientClosed) {
		code = ErrCodeClientClosed
	}
	return NewExchangeError(exchange, ErrorTypeTransport, 0, "transport failure").
		WithCode(code).
		WithCause(err)
}

// NewAuthError creates an authentication error. The exchange is filled in by the dispatcher.
func NewAuthError(code ErrorCode, message string, cause error) *ExchangeError {
	return NewExchangeError("", ErrorTypeAuth, 0, message).WithCode(code).WithCause(cause)
}

// NewSignatureError creates an error for a failed cryptographic operation.
func NewSignatureError(message string, cause error) *ExchangeError {
	return NewExchangeError("", ErrorTypeSignature, 0, message).WithCode(ErrCodeSignature).WithCause(cause)
}

// NewDecodeError creates an error for a body that could not be decoded.
// path names the record or field that failed, when known.
func NewDecodeError(exchange, path string, cause error) *ExchangeError {
	e := NewExchangeError(exchange, ErrorTypeDecode, 0, "decode failure").WithCode(ErrCodeDecode).WithCause(cause)
	e.Path = path
	return e
}

// NewRemoteAPIError creates an error for a non-success answer from the exchange.
func NewRemoteAPIError(exchange string, statusCode int, code, message, detail string) *ExchangeError {
	return NewExchangeErrorWithCode(exchange, ErrorTypeRemoteAPI, statusCode, code, message).WithDetail(detail)
}

// NewDomainError creates an error for a failed post-processing step.
func NewDomainError(exchange string, code ErrorCode, message string) *ExchangeError {
	return NewExchangeError(exchange, ErrorTypeDomain, 0, message).WithCode(code)
}

// AttachExchange fills in the exchange name on err when it is an ExchangeError
// that does not carry one yet. The original error is returned.
func AttachExchange(err error, exchange string) error {
	var exErr *ExchangeError
	if errors.As(err, &exErr) && exErr.Exchange == "" {
		exErr.Exchange = exchange
	}
	return err
}

func isType(err error, t ErrorType) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return exErr.Type == t
	}
	return false
}

// IsTransportError returns true if the error came from the HTTP transport.
func IsTransportError(err error) bool {
	return isType(err, ErrorTypeTransport)
}

// IsAuthError returns true if the error is an authentication setup failure.
// Authentication errors are never retried.
func IsAuthError(err error) bool {
	return isType(err, ErrorTypeAuth)
}

// IsSignatureError returns true if signing failed.
func IsSignatureError(err error) bool {
	return isType(err, ErrorTypeSignature)
}

// IsDecodeError returns true if a response body could not be decoded.
func IsDecodeError(err error) bool {
	return isType(err, ErrorTypeDecode)
}

// IsRemoteAPIError returns true if the exchange rejected the call.
func IsRemoteAPIError(err error) bool {
	return isType(err, ErrorTypeRemoteAPI)
}

// IsDomainError returns true if post-processing of a decoded response failed.
func IsDomainError(err error) bool {
	return isType(err, ErrorTypeDomain)
}

// IsRateLimitError returns true if the error is a rate limit violation.
func IsRateLimitError(err error) bool {
	return isType(err, ErrorTypeRateLimit)
}
