package raiderio

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRetryExhausted is returned inside a transient Outcome when all retry
// attempts are spent.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// ErrorClass categorizes an upstream failure for retry decisions and metrics.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassThrottle represents 429 responses from the API.
	ErrorClassThrottle ErrorClass = "throttle"

	// ErrorClassNetwork represents transport-level errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassPayload represents a 2xx response whose body could not be
	// parsed.
	ErrorClassPayload ErrorClass = "payload"
)

// APIError is a classified upstream failure.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("raiderio %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("raiderio %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to an error class.
// Only call for codes >= 400.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassThrottle
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// isTransient reports whether an error class is worth retrying.
// Client and payload errors are terminal: a retry will not help.
func isTransient(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassThrottle, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
