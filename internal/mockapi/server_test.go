package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/pushover/internal/callback"
	"github.com/kursadbilgin/pushover/internal/observability"
	"github.com/kursadbilgin/pushover/internal/ratelimit"
	"github.com/kursadbilgin/pushover/pkg/pushover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	appToken  = "azGDORePK8gMaC0QOYAMyEEuzJnyUi"
	userToken = "uQiRzpo4DXghDmr9QzzfQu27cmVRsG"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	urls []string
	acks []callback.Acknowledgement
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, callbackURL string, ack callback.Acknowledgement) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, callbackURL)
	n.acks = append(n.acks, ack)
	return n.err
}

func newTestServer(t *testing.T, limit int, clock *fakeClock) (*Server, *pushover.Client, string) {
	t.Helper()

	server := New(Options{
		AppLimit:  limit,
		Callbacks: &recordingNotifier{},
		Devices:   []string{"iphone", "desktop"},
		Metrics:   observability.NewMetrics(),
		Now:       clock.Now,
	})
	httpServer := httptest.NewServer(adaptor.FiberApp(server.App()))
	t.Cleanup(httpServer.Close)

	baseURL := httpServer.URL + "/1"
	client, err := pushover.NewClient(appToken, pushover.WithBaseURL(baseURL))
	require.NoError(t, err)
	return server, client, baseURL
}

func remaining(t *testing.T, server *Server) int {
	t.Helper()

	n, err := server.Remaining(context.Background(), appToken)
	require.NoError(t, err)
	return n
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body), "body=%s", raw)
	return resp, body
}

func TestMessageRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		form       url.Values
		wantError  string
		wantLimits bool
	}{
		{
			name:      "missing app token",
			form:      url.Values{"user": {userToken}, "message": {"hi"}},
			wantError: "application token is invalid",
		},
		{
			name:       "blank message",
			form:       url.Values{"token": {appToken}, "user": {userToken}, "message": {"  "}},
			wantError:  "message",
			wantLimits: true,
		},
		{
			name:       "unknown sound",
			form:       url.Values{"token": {appToken}, "user": {userToken}, "message": {"hi"}, "sound": {"foghorn"}},
			wantError:  "foghorn",
			wantLimits: true,
		},
		{
			name:       "malformed device",
			form:       url.Values{"token": {appToken}, "user": {userToken}, "message": {"hi"}, "device": {"not a valid device!!"}},
			wantError:  "invalid device",
			wantLimits: true,
		},
		{
			name:       "non numeric timestamp",
			form:       url.Values{"token": {appToken}, "user": {userToken}, "message": {"hi"}, "timestamp": {"yesterday"}},
			wantError:  "timestamp is invalid",
			wantLimits: true,
		},
		{
			name:       "negative timestamp",
			form:       url.Values{"token": {appToken}, "user": {userToken}, "message": {"hi"}, "timestamp": {"-5"}},
			wantError:  "timestamp is invalid",
			wantLimits: true,
		},
		{
			name:       "emergency without expire",
			form:       url.Values{"token": {appToken}, "user": {userToken}, "message": {"hi"}, "priority": {"2"}, "retry": {"30"}},
			wantError:  "expire must be supplied with priority=2",
			wantLimits: true,
		},
		{
			name:       "retry below minimum",
			form:       url.Values{"token": {appToken}, "user": {userToken}, "message": {"hi"}, "priority": {"2"}, "retry": {"5"}, "expire": {"60"}},
			wantError:  "retry",
			wantLimits: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := New(Options{AppLimit: 5, Now: newFakeClock().Now})
			resp, body := postForm(t, server.App(), "/1/messages.json", tt.form)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.EqualValues(t, 0, body["status"])
			assert.NotEmpty(t, body["request"])
			if tt.wantLimits {
				assert.Equal(t, "5", resp.Header.Get(pushover.HeaderAppLimit))
			} else {
				assert.Empty(t, resp.Header.Get(pushover.HeaderAppLimit), "unknown applications get no quota headers")
			}

			errs, ok := body["errors"].([]any)
			require.True(t, ok, "errors = %v", body["errors"])
			joined := make([]string, 0, len(errs))
			for _, e := range errs {
				joined = append(joined, e.(string))
			}
			assert.Contains(t, strings.Join(joined, "; "), tt.wantError)
			assert.Equal(t, 5, remaining(t, server), "rejected messages must not consume quota")
		})
	}
}

func TestMessageAcceptedDecrementsQuota(t *testing.T) {
	t.Parallel()

	server := New(Options{AppLimit: 3, Now: newFakeClock().Now})
	resp, body := postForm(t, server.App(), "/1/messages.json", url.Values{
		"token":   {appToken},
		"user":    {userToken},
		"message": {"Backup finished"},
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["status"])
	assert.NotContains(t, body, "receipt")
	assert.Equal(t, "2", resp.Header.Get(pushover.HeaderAppRemaining))
	assert.Equal(t, "1775001600", resp.Header.Get(pushover.HeaderAppReset))
	assert.Equal(t, 2, remaining(t, server))
}

func TestMessageAcceptsDeviceAndTimestamp(t *testing.T) {
	t.Parallel()

	server := New(Options{AppLimit: 3, Now: newFakeClock().Now})
	resp, body := postForm(t, server.App(), "/1/messages.json", url.Values{
		"token":     {appToken},
		"user":      {userToken},
		"message":   {"Backup finished"},
		"device":    {"server-01"},
		"timestamp": {"1405711800"},
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["status"])
	assert.Equal(t, 2, remaining(t, server))
}

func TestEmergencyReceiptLifecycle(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	server, client, _ := newTestServer(t, 10, clock)
	ctx := context.Background()

	message, err := pushover.NewMessage(userToken, "Test message")
	require.NoError(t, err)
	require.NoError(t, message.SetPriority(pushover.PriorityEmergency))
	require.NoError(t, message.SetCallbackURL("https://example.com/ack"))

	receipt, err := client.Send(ctx, message)
	require.NoError(t, err)
	require.Len(t, receipt, 30)
	assert.Equal(t, 9, remaining(t, server))

	request, err := pushover.NewReceipt(receipt)
	require.NoError(t, err)

	clock.Advance(95 * time.Second)
	status, err := client.PollReceipt(ctx, request)
	require.NoError(t, err)
	assert.False(t, status.IsAcknowledged())
	require.NotNil(t, status.Expired)
	assert.False(t, *status.Expired)
	require.NotNil(t, status.LastDeliveredAt)
	assert.True(t, status.LastDeliveredAt.Equal(clock.Now().Add(-5*time.Second)), "last delivered = %v", status.LastDeliveredAt)
	require.NotNil(t, status.ExpiresAt)
	assert.True(t, status.ExpiresAt.Equal(clock.Now().Add(-95*time.Second+time.Hour)))
	assert.Nil(t, status.AcknowledgedAt)

	acknowledged, err := server.Acknowledge(ctx, receipt, userToken, "iphone")
	require.NoError(t, err)
	require.True(t, acknowledged)
	acknowledged, err = server.Acknowledge(ctx, receipt, userToken, "iphone")
	require.NoError(t, err)
	assert.False(t, acknowledged, "second acknowledgement should be ignored")

	notifier := server.callbacks.(*recordingNotifier)
	require.Len(t, notifier.acks, 1)
	assert.Equal(t, "https://example.com/ack", notifier.urls[0])
	assert.Equal(t, callback.Acknowledgement{
		Receipt:        receipt,
		AcknowledgedAt: clock.Now(),
		AcknowledgedBy: userToken,
		Device:         "iphone",
	}, notifier.acks[0])

	status, err = client.PollReceipt(ctx, request)
	require.NoError(t, err)
	assert.True(t, status.IsAcknowledged())
	require.NotNil(t, status.AcknowledgedBy)
	assert.Equal(t, userToken, *status.AcknowledgedBy)
	require.NotNil(t, status.AcknowledgedAt)
	assert.True(t, status.AcknowledgedAt.Equal(clock.Now()))
	require.NotNil(t, status.CalledBack)
	assert.True(t, *status.CalledBack)
}

func TestEmergencyReceiptExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	_, client, _ := newTestServer(t, 10, clock)
	ctx := context.Background()

	message, err := pushover.NewMessage(userToken, "disk full")
	require.NoError(t, err)
	require.NoError(t, message.SetPriority(pushover.PriorityEmergency))
	require.NoError(t, message.SetExpire(60))
	require.NoError(t, message.SetRetry(30))

	receipt, err := client.Send(ctx, message)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	request, err := pushover.NewReceipt(receipt)
	require.NoError(t, err)

	status, err := client.PollReceipt(ctx, request)
	require.NoError(t, err)
	require.NotNil(t, status.Expired)
	assert.True(t, *status.Expired)
	assert.False(t, status.IsAcknowledged())
	require.NotNil(t, status.CalledBack)
	assert.False(t, *status.CalledBack)
	assert.Nil(t, status.CalledBackAt)
	require.NotNil(t, status.LastDeliveredAt)
	assert.True(t, status.LastDeliveredAt.Equal(clock.Now().Add(-time.Minute)))
}

func TestReceiptNotFound(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	server, client, baseURL := newTestServer(t, 10, clock)
	ctx := context.Background()

	unknown, err := pushover.NewReceipt(strings.Repeat("r", 30))
	require.NoError(t, err)

	_, err = client.PollReceipt(ctx, unknown)
	require.ErrorIs(t, err, pushover.ErrAPI)
	assert.Contains(t, err.Error(), "receipt not found")

	message, err := pushover.NewMessage(userToken, "hello")
	require.NoError(t, err)
	require.NoError(t, message.SetPriority(pushover.PriorityEmergency))
	receipt, err := client.Send(ctx, message)
	require.NoError(t, err)

	other, err := pushover.NewClient(strings.Repeat("b", 30), pushover.WithBaseURL(baseURL))
	require.NoError(t, err)
	owned, err := pushover.NewReceipt(receipt)
	require.NoError(t, err)

	_, err = other.PollReceipt(ctx, owned)
	require.ErrorIs(t, err, pushover.ErrAPI, "receipts are only visible to the application that created them")
	acknowledged, err := server.Acknowledge(ctx, strings.Repeat("r", 30), userToken, "")
	require.NoError(t, err)
	assert.False(t, acknowledged)
}

func TestValidateAndDevices(t *testing.T) {
	t.Parallel()

	_, client, _ := newTestServer(t, 10, newFakeClock())
	ctx := context.Background()

	devices, err := client.UserDevices(ctx, userToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"iphone", "desktop"}, devices)

	request, err := pushover.NewValidate(userToken)
	require.NoError(t, err)
	require.NoError(t, request.SetDevice("desktop"))
	ok, err := client.Validate(ctx, request)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, request.SetDevice("watch"))
	_, err = client.Validate(ctx, request)
	require.ErrorIs(t, err, pushover.ErrAPI)
	assert.Contains(t, err.Error(), "device name is not valid for user")
}

func TestQuotaExhaustedReturnsRateLimit(t *testing.T) {
	t.Parallel()

	_, client, _ := newTestServer(t, 1, newFakeClock())
	ctx := context.Background()

	message, err := pushover.NewMessage(userToken, "only one")
	require.NoError(t, err)

	_, err = client.Send(ctx, message)
	require.NoError(t, err)

	_, err = client.Send(ctx, message)
	require.ErrorIs(t, err, pushover.ErrRateLimited)
	assert.True(t, pushover.IsTransient(err))
	assert.Contains(t, err.Error(), "please try again after")
}

func TestQuotaIsPerApplication(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	quota := ratelimit.NewMemoryQuota(1, clock.Now)
	server := New(Options{Quota: quota, Now: clock.Now})
	app := server.App()

	form := url.Values{"token": {appToken}, "user": {userToken}, "message": {"hi"}}
	resp, _ := postForm(t, app, "/1/messages.json", form)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := postForm(t, app, "/1/messages.json", form)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get(pushover.HeaderAppRemaining))
	assert.EqualValues(t, 0, body["status"])

	form.Set("token", strings.Repeat("c", 30))
	resp, _ = postForm(t, app, "/1/messages.json", form)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "another application has its own quota")

	clock.Advance(31 * 24 * time.Hour)
	form.Set("token", appToken)
	resp, _ = postForm(t, app, "/1/messages.json", form)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "the quota resets with the calendar month")
}

type failingQuota struct{ err error }

func (q failingQuota) Consume(context.Context, string) (ratelimit.Usage, bool, error) {
	return ratelimit.Usage{}, false, q.err
}

func (q failingQuota) Usage(context.Context, string) (ratelimit.Usage, error) {
	return ratelimit.Usage{}, q.err
}

func (q failingQuota) Ping(context.Context) error { return q.err }

func TestQuotaBackendFailure(t *testing.T) {
	t.Parallel()

	server := New(Options{Quota: failingQuota{err: errors.New("connection refused")}})
	resp, body := postForm(t, server.App(), "/1/messages.json", url.Values{
		"token":   {appToken},
		"user":    {userToken},
		"message": {"hi"},
	})

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.EqualValues(t, 0, body["status"])
	assert.Equal(t, []any{"quota backend unavailable"}, body["errors"])
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		quota      ratelimit.Quota
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "livez", quota: ratelimit.NewMemoryQuota(1, nil), path: "/livez", wantStatus: fiber.StatusOK, wantBody: "ok"},
		{name: "ready", quota: ratelimit.NewMemoryQuota(1, nil), path: "/readyz", wantStatus: fiber.StatusOK, wantBody: "ready"},
		{name: "not ready", quota: failingQuota{err: errors.New("down")}, path: "/readyz", wantStatus: fiber.StatusServiceUnavailable, wantBody: "not_ready"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := New(Options{Quota: tt.quota}).App()
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestAcknowledgeRoute(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	notifier := &recordingNotifier{err: errors.New("callback host unreachable")}
	server := New(Options{AppLimit: 10, Callbacks: notifier, Now: clock.Now})
	app := server.App()

	_, body := postForm(t, app, "/1/messages.json", url.Values{
		"token":    {appToken},
		"user":     {userToken},
		"message":  {"disk full"},
		"priority": {"2"},
		"expire":   {"300"},
		"retry":    {"60"},
		"callback": {"https://example.com/ack"},
	})
	receipt, ok := body["receipt"].(string)
	require.True(t, ok, "body = %v", body)

	resp, _ := postForm(t, app, "/mock/receipts/"+receipt+"/acknowledge", url.Values{"user": {"short"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = postForm(t, app, "/mock/receipts/"+receipt+"/acknowledge", url.Values{"user": {userToken}, "device": {"desktop"}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["status"])
	require.Len(t, notifier.acks, 1)
	assert.Equal(t, "desktop", notifier.acks[0].Device)

	req := httptest.NewRequest(http.MethodGet, "/1/receipts/"+receipt+".json?token="+appToken, nil)
	receiptResp, err := app.Test(req)
	require.NoError(t, err)
	defer receiptResp.Body.Close()

	var status map[string]any
	require.NoError(t, json.NewDecoder(receiptResp.Body).Decode(&status))
	assert.EqualValues(t, 1, status["acknowledged"])
	assert.EqualValues(t, 0, status["called_back"], "a failed callback is not reported as called back")

	resp, _ = postForm(t, app, "/mock/receipts/"+receipt+"/acknowledge", url.Values{"user": {userToken}})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
