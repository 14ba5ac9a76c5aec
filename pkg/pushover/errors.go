package pushover

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidArgument is wrapped by every setter and constructor that rejects its input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAPI matches every error reported through an HTTP status of 400 or above.
	ErrAPI = errors.New("pushover api error")

	// ErrServerUnavailable matches HTTP 500 responses.
	ErrServerUnavailable = errors.New("pushover server unavailable")

	// ErrRateLimited matches HTTP 429 responses.
	ErrRateLimited = errors.New("pushover rate limit reached")

	// ErrNotInitialized is returned by methods called on a nil *Client,
	// such as Default() before Init.
	ErrNotInitialized = errors.New("pushover client is not initialized")
)

// TransportError reports a request that failed before any response was received.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return "pushover transport error"
	}
	return "pushover transport error: " + e.Cause.Error()
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// APIError is returned when the API answers with a failure status.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
	ResetAt    *time.Time
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	parts = append(parts, ErrAPI.Error())

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}

	return strings.Join(parts, ": ")
}

func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}

	switch target {
	case ErrAPI:
		return true
	case ErrServerUnavailable:
		return e.StatusCode == http.StatusInternalServerError
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func newAPIError(statusCode int, apiErrors []string, resetAt *time.Time) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Errors:     apiErrors,
		ResetAt:    resetAt,
	}

	switch {
	case statusCode == http.StatusInternalServerError:
		apiErr.Message = "pushover is experiencing temporary server issues, please try again later"
	case statusCode == http.StatusTooManyRequests && resetAt != nil:
		apiErr.Message = fmt.Sprintf("monthly rate limit has been reached, please try again after %s", resetAt.Format(time.RFC1123Z))
	case statusCode == http.StatusTooManyRequests:
		apiErr.Message = "monthly rate limit has been reached, please try again after the rate limit has been reset"
	case apiErrors != nil:
		apiErr.Message = fmt.Sprintf("pushover experienced errors processing your request: %s", strings.Join(apiErrors, ", "))
	default:
		apiErr.Message = "pushover experienced an unknown error processing your request"
	}

	return apiErr
}

// IsTransient reports whether an error is likely to succeed if the caller tries again later.
// The client itself never retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrServerUnavailable) || errors.Is(err, ErrRateLimited) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
