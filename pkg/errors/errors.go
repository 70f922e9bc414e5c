package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures seen while talking to imgur or the local store
type ErrorType string

const (
	ErrorTypeTransport         ErrorType = "transport"
	ErrorTypeUpstream          ErrorType = "upstream"
	ErrorTypeRateLimit         ErrorType = "rate_limit"
	ErrorTypeAuth              ErrorType = "auth"
	ErrorTypeParsing           ErrorType = "parsing"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeServerError       ErrorType = "server_error"
	ErrorTypeStorage           ErrorType = "storage"
	ErrorTypeResourceExhausted ErrorType = "resource_exhausted"
	ErrorTypeUnknown           ErrorType = "unknown"
)

var (
	// ErrResourceExhausted is returned when per-scope state cannot be built for a fetch.
	ErrResourceExhausted = stderrors.New("not enough resources to load saved data")
	// ErrNotSignedIn means the account lookup returned no username.
	ErrNotSignedIn = stderrors.New("not signed in to imgur")
	// ErrRiskDeclined is returned when the user refuses a full fetch.
	ErrRiskDeclined = stderrors.New("full fetch declined")
)

// Error represents an API or storage error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New builds a typed error.
func New(errorType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: errorType, Code: code, Message: fmt.Sprintf(format, args...)}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing, ErrorTypeUpstream, ErrorTypeStorage:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // transport failure, no response
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// FromStatusCode maps an HTTP status to an error type.
func FromStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUpstream
	}
}
