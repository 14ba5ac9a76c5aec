package pushover

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.pushover.net/1"
	UserAgent      = "pushover-go/1.0 (+https://github.com/kursadbilgin/pushover)"

	defaultTimeout = 10 * time.Second
)

// Client talks to the Pushover API on behalf of one application.
// Configure it once and share it; it holds no per-request state.
type Client struct {
	http        *resty.Client
	baseURL     string
	timeout     time.Duration
	appToken    string
	validateSSL bool
	logger      *zap.Logger
	recorder    Recorder
}

func NewClient(appToken string, opts ...Option) (*Client, error) {
	c := &Client{
		http:        resty.New(),
		baseURL:     DefaultBaseURL,
		validateSSL: true,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.SetToken(appToken); err != nil {
		return nil, err
	}

	c.baseURL = strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid base url %q: %v", ErrInvalidArgument, c.baseURL, err)
	}

	switch {
	case c.timeout > 0:
		c.http.SetTimeout(c.timeout)
	case c.http.GetClient().Timeout == 0:
		c.http.SetTimeout(defaultTimeout)
	}
	c.http.SetRetryCount(0)

	return c, nil
}

// SetToken replaces the application token. An invalid token leaves the client unchanged.
func (c *Client) SetToken(appToken string) error {
	if c == nil {
		return ErrNotInitialized
	}
	if err := validateToken("application token", appToken); err != nil {
		return err
	}
	c.appToken = appToken
	return nil
}

// Token returns the application token, or "" on a nil client.
func (c *Client) Token() string {
	if c == nil {
		return ""
	}
	return c.appToken
}

// DisableSSLVerification turns off TLS certificate checks. Only use it while debugging.
func (c *Client) DisableSSLVerification() {
	if c == nil || c.http == nil {
		return
	}
	c.validateSSL = false
	c.http.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
}

func (c *Client) SSLVerification() bool { return c == nil || c.validateSSL }

// UserDevices returns the device names registered for a user. The slice is
// empty, never nil, when the API lists none.
func (c *Client) UserDevices(ctx context.Context, userToken string) ([]string, error) {
	request, err := NewValidate(userToken)
	if err != nil {
		return nil, err
	}

	response, err := c.doRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	if response.Devices == nil {
		return []string{}, nil
	}
	return response.Devices, nil
}

// Send pushes a message. It returns the receipt for emergency messages and "" otherwise.
func (c *Client) Send(ctx context.Context, message *Message) (string, error) {
	if message == nil {
		return "", fmt.Errorf("%w: message is required", ErrInvalidArgument)
	}

	response, err := c.doRequest(ctx, message)
	if err != nil {
		return "", err
	}

	if response.Receipt == nil {
		return "", nil
	}
	return *response.Receipt, nil
}

// Validate reports whether the user, and device if set, is known to the API.
func (c *Client) Validate(ctx context.Context, request *Validate) (bool, error) {
	if request == nil {
		return false, fmt.Errorf("%w: validate request is required", ErrInvalidArgument)
	}

	response, err := c.doRequest(ctx, request)
	if err != nil {
		return false, err
	}
	return response.Succeeded(), nil
}

func (c *Client) PollReceipt(ctx context.Context, request *Receipt) (*Response, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: receipt request is required", ErrInvalidArgument)
	}
	return c.doRequest(ctx, request)
}

func (c *Client) doRequest(ctx context.Context, request Request) (*Response, error) {
	if c == nil || c.http == nil {
		return nil, ErrNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entryPoint := request.entryPoint()
	logger := requestLogger(c.logger, ctx, entryPoint)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", UserAgent)

	var (
		rawResponse *resty.Response
		err         error
	)
	start := time.Now()

	if receipt, ok := request.(*Receipt); ok {
		path := strings.Replace(entryPoint, "{receipt}", url.PathEscape(receipt.Receipt()), 1)
		rawResponse, err = req.
			SetQueryParam(FieldToken, c.appToken).
			Get(c.endpoint(path))
	} else {
		fields := request.Fields()
		fields[FieldToken] = c.appToken
		rawResponse, err = req.
			SetFormData(fields).
			Post(c.endpoint(entryPoint))
	}

	if err != nil {
		c.observe(entryPoint, "transport_error", start)
		logger.Warn("pushover request failed", zap.Error(err))
		return nil, &TransportError{Cause: err}
	}
	if rawResponse == nil {
		c.observe(entryPoint, "transport_error", start)
		return nil, &TransportError{Cause: errors.New("empty response")}
	}

	response, err := NewResponse(rawResponse.StatusCode(), rawResponse.Header(), rawResponse.Body())
	if err != nil {
		c.observe(entryPoint, outcomeOf(err), start)
		logger.Warn("pushover api returned an error",
			zap.Int("status", rawResponse.StatusCode()),
			zap.Error(err),
		)
		return nil, err
	}

	c.observe(entryPoint, "success", start)
	if c.recorder != nil && response.AppRemaining != nil {
		c.recorder.SetAppRemaining(*response.AppRemaining)
	}

	fields := []zap.Field{zap.Int("status", rawResponse.StatusCode())}
	if response.AppRemaining != nil {
		fields = append(fields, zap.Int("appRemaining", *response.AppRemaining))
	}
	if response.Request != nil {
		fields = append(fields, zap.String("requestId", *response.Request))
	}
	logger.Debug("pushover request completed", fields...)

	return response, nil
}

func (c *Client) endpoint(entryPoint string) string {
	return fmt.Sprintf("%s/%s.json", c.baseURL, entryPoint)
}

func (c *Client) observe(entryPoint, outcome string, start time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveAPIRequest(entryPoint, outcome, time.Since(start))
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrServerUnavailable):
		return "server_error"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAPI):
		return "api_error"
	}
	return "error"
}
