package pushover

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Recorder receives per-call measurements. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveAPIRequest(entryPoint string, outcome string, duration time.Duration)
	SetAppRemaining(remaining int)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the resty client. Retries are disabled on it.
func WithHTTPClient(client *resty.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL points the client at another API root, e.g. a mock server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}
