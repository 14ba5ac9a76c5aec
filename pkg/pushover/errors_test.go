package pushover

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

type timeoutNetError struct{ timeout bool }

func (e timeoutNetError) Error() string   { return "net failure" }
func (e timeoutNetError) Timeout() bool   { return e.timeout }
func (e timeoutNetError) Temporary() bool { return false }

var _ net.Error = timeoutNetError{}

func TestAPIErrorMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantServer bool
		wantRate   bool
	}{
		{name: "bad request", statusCode: http.StatusBadRequest},
		{name: "server error", statusCode: http.StatusInternalServerError, wantServer: true},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, wantRate: true},
		{name: "bad gateway", statusCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fmt.Errorf("send: %w", newAPIError(tt.statusCode, nil, nil))
			if !errors.Is(err, ErrAPI) {
				t.Fatal("every APIError should match ErrAPI")
			}
			if got := errors.Is(err, ErrServerUnavailable); got != tt.wantServer {
				t.Fatalf("errors.Is(ErrServerUnavailable) = %v, want %v", got, tt.wantServer)
			}
			if got := errors.Is(err, ErrRateLimited); got != tt.wantRate {
				t.Fatalf("errors.Is(ErrRateLimited) = %v, want %v", got, tt.wantRate)
			}
			if errors.Is(err, ErrInvalidArgument) {
				t.Fatal("APIError should not match ErrInvalidArgument")
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	reset := time.Unix(1405711800, 0).UTC()

	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "errors listed",
			err:  newAPIError(http.StatusBadRequest, []string{"user identifier is invalid", "message cannot be blank"}, nil),
			want: "pushover api error: status=400: pushover experienced errors processing your request: user identifier is invalid, message cannot be blank",
		},
		{
			name: "rate limited with reset",
			err:  newAPIError(http.StatusTooManyRequests, nil, &reset),
			want: "pushover api error: status=429: monthly rate limit has been reached, please try again after Fri, 18 Jul 2014 19:30:00 +0000",
		},
		{
			name: "server error ignores listed errors",
			err:  newAPIError(http.StatusInternalServerError, []string{"ignored"}, nil),
			want: "pushover api error: status=500: pushover is experiencing temporary server issues, please try again later",
		},
		{
			name: "unknown",
			err:  newAPIError(http.StatusNotFound, nil, nil),
			want: "pushover api error: status=404: pushover experienced an unknown error processing your request",
		},
		{
			name: "bare",
			err:  &APIError{},
			want: "pushover api error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline exceeded", err: &TransportError{Cause: context.DeadlineExceeded}, want: true},
		{name: "canceled", err: &TransportError{Cause: context.Canceled}, want: false},
		{name: "network timeout", err: &TransportError{Cause: timeoutNetError{timeout: true}}, want: true},
		{name: "network refusal", err: &TransportError{Cause: timeoutNetError{timeout: false}}, want: false},
		{name: "server error", err: newAPIError(http.StatusInternalServerError, nil, nil), want: true},
		{name: "rate limited", err: newAPIError(http.StatusTooManyRequests, nil, nil), want: true},
		{name: "bad request", err: newAPIError(http.StatusBadRequest, []string{"x"}, nil), want: false},
		{name: "invalid argument", err: fmt.Errorf("%w: bad token", ErrInvalidArgument), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := error(&TransportError{Cause: cause})

	if !errors.Is(err, cause) {
		t.Fatal("TransportError should unwrap to its cause")
	}
	if err.Error() != "pushover transport error: dial tcp: connection refused" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if (&TransportError{}).Error() != "pushover transport error" {
		t.Fatal("TransportError without a cause should still describe itself")
	}
}
