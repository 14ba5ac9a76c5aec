// Package mockapi serves a local imitation of the Pushover HTTP API.
package mockapi

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/pushover/internal/callback"
	"github.com/kursadbilgin/pushover/internal/observability"
	"github.com/kursadbilgin/pushover/internal/ratelimit"
	"github.com/kursadbilgin/pushover/pkg/pushover"
	"go.uber.org/zap"
)

const apiVersionPrefix = "/1"

// Options configures a Server. Zero values fall back to sensible defaults.
type Options struct {
	// AppLimit sizes the in-memory quota used when Quota is nil.
	AppLimit  int
	Quota     ratelimit.Quota
	Callbacks callback.Notifier
	Devices   []string
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Now       func() time.Time
}

type receiptState struct {
	appToken       string
	callback       string
	retry          time.Duration
	createdAt      time.Time
	expiresAt      time.Time
	acknowledgedAt time.Time
	acknowledgedBy string
	calledBackAt   time.Time
}

// Server keeps the receipt state behind the mock endpoints.
type Server struct {
	mu        sync.Mutex
	quota     ratelimit.Quota
	callbacks callback.Notifier
	devices   []string
	receipts  map[string]*receiptState

	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func New(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	devices := opts.Devices
	if devices == nil {
		devices = []string{}
	}
	quota := opts.Quota
	if quota == nil {
		quota = ratelimit.NewMemoryQuota(opts.AppLimit, now)
	}

	callbacks := opts.Callbacks
	if callbacks == nil {
		callbacks = callback.NewWebhookNotifier()
	}

	return &Server{
		quota:     quota,
		callbacks: callbacks,
		devices:   devices,
		receipts:  make(map[string]*receiptState),
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
	}
}

// App builds the fiber application exposing the mock endpoints.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "mock-pushover",
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          errorHandler(s.logger),
	})

	app.Use(s.metrics.HTTPMiddleware())

	registerHealthRoutes(app, s.quota)

	api := app.Group(apiVersionPrefix)
	api.Post("/messages.json", s.handleMessage)
	api.Post("/users/validate.json", s.handleValidate)
	api.Get("/receipts/:receipt", s.handleReceipt)

	app.Post("/mock/receipts/:receipt/acknowledge", s.handleAcknowledge)

	return app
}

// Acknowledge marks an emergency receipt as acknowledged by user and, when the
// message carried a callback URL, delivers the acknowledgement to it. It
// reports false for unknown, expired or already acknowledged receipts. A failed
// callback leaves the receipt acknowledged but not called back.
func (s *Server) Acknowledge(ctx context.Context, receipt, user, device string) (bool, error) {
	s.mu.Lock()
	state, ok := s.receipts[receipt]
	now := s.now()
	if !ok || !state.acknowledgedAt.IsZero() || !now.Before(state.expiresAt) {
		s.mu.Unlock()
		return false, nil
	}
	state.acknowledgedAt = now
	state.acknowledgedBy = user
	callbackURL := state.callback
	s.mu.Unlock()

	if callbackURL == "" {
		return true, nil
	}

	err := s.callbacks.Notify(ctx, callbackURL, callback.Acknowledgement{
		Receipt:        receipt,
		AcknowledgedAt: now,
		AcknowledgedBy: user,
		Device:         device,
	})
	if err != nil {
		return true, err
	}

	s.mu.Lock()
	state.calledBackAt = s.now()
	s.mu.Unlock()
	return true, nil
}

// Remaining returns how many messages appToken has left this month.
func (s *Server) Remaining(ctx context.Context, appToken string) (int, error) {
	usage, err := s.quota.Usage(ctx, appToken)
	if err != nil {
		return 0, err
	}
	return usage.Remaining, nil
}

func (s *Server) handleMessage(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	appToken := c.FormValue(pushover.FieldToken)

	if errs := s.checkAppToken(appToken); len(errs) > 0 {
		return s.reject(c, fiber.StatusBadRequest, requestID, errs...)
	}
	if err := s.setLimitHeaders(c, appToken); err != nil {
		return err
	}

	message, priority, errs := messageFromForm(c)
	if len(errs) > 0 {
		return s.reject(c, fiber.StatusBadRequest, requestID, errs...)
	}

	usage, ok, err := s.quota.Consume(c.UserContext(), appToken)
	if err != nil {
		s.logger.Error("quota consume failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "quota backend unavailable")
	}
	writeLimitHeaders(c, usage)
	if !ok {
		return s.reject(c, fiber.StatusTooManyRequests, requestID, "application is over its message limit")
	}

	body := fiber.Map{"status": 1, "request": requestID}
	if priority == pushover.PriorityEmergency {
		s.mu.Lock()
		body["receipt"] = s.createReceiptLocked(appToken, message.Fields())
		s.mu.Unlock()
	}

	s.metrics.IncMockMessageAccepted(priority.String())
	s.logger.Info("mock message accepted",
		zap.String("requestId", requestID),
		zap.String("priority", priority.String()),
	)

	return c.Status(fiber.StatusOK).JSON(body)
}

func (s *Server) handleValidate(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	appToken := c.FormValue(pushover.FieldToken)

	if errs := s.checkAppToken(appToken); len(errs) > 0 {
		return s.reject(c, fiber.StatusBadRequest, requestID, errs...)
	}
	if err := s.setLimitHeaders(c, appToken); err != nil {
		return err
	}

	request, err := pushover.NewValidate(c.FormValue(pushover.FieldRecipient))
	if err != nil {
		return s.reject(c, fiber.StatusBadRequest, requestID, "user key is invalid")
	}
	if device := c.FormValue(pushover.FieldDevice); device != "" {
		if err := request.SetDevice(device); err != nil || !s.hasDevice(device) {
			return s.reject(c, fiber.StatusBadRequest, requestID, "device name is not valid for user")
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  1,
		"group":   0,
		"devices": s.devices,
		"request": requestID,
	})
}

func (s *Server) handleReceipt(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	receipt := strings.TrimSuffix(c.Params("receipt"), ".json")
	appToken := c.Query(pushover.FieldToken)

	if errs := s.checkAppToken(appToken); len(errs) > 0 {
		return s.reject(c, fiber.StatusBadRequest, requestID, errs...)
	}
	if err := s.setLimitHeaders(c, appToken); err != nil {
		return err
	}

	s.mu.Lock()
	state, ok := s.receipts[receipt]
	if ok && state.appToken != appToken {
		ok = false
	}
	var body fiber.Map
	if ok {
		body = s.receiptBodyLocked(state)
	}
	s.mu.Unlock()

	if !ok {
		return s.reject(c, fiber.StatusNotFound, requestID, "receipt not found; may be invalid or expired")
	}

	body["status"] = 1
	body["request"] = requestID
	return c.Status(fiber.StatusOK).JSON(body)
}

func (s *Server) handleAcknowledge(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	user := c.FormValue(pushover.FieldRecipient)

	if !pushover.IsValidToken(user) {
		return s.reject(c, fiber.StatusBadRequest, requestID, "user key is invalid")
	}

	ok, err := s.Acknowledge(c.UserContext(), c.Params("receipt"), user, c.FormValue(pushover.FieldDevice))
	if !ok {
		return s.reject(c, fiber.StatusNotFound, requestID, "receipt not found, expired or already acknowledged")
	}

	if err != nil {
		s.logger.Warn("callback delivery failed",
			zap.String("requestId", requestID),
			zap.Bool("transient", pushover.IsTransient(err)),
			zap.Error(err),
		)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  1,
		"request": requestID,
	})
}

func messageFromForm(c *fiber.Ctx) (*pushover.Message, pushover.Priority, []string) {
	message := &pushover.Message{}
	priority := pushover.PriorityNormal
	var errs []string

	check := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	check(message.SetRecipient(c.FormValue(pushover.FieldRecipient)))
	check(message.SetMessage(c.FormValue(pushover.FieldMessage)))

	if v := c.FormValue(pushover.FieldTitle); v != "" {
		check(message.SetTitle(v))
	}
	if v := c.FormValue(pushover.FieldDevice); v != "" {
		check(message.SetDevice(v))
	}
	if v := c.FormValue(pushover.FieldTimestamp); v != "" {
		unix, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || unix <= 0 {
			errs = append(errs, "timestamp is invalid, it must be a positive unix time in seconds")
		} else {
			message.SetTimestamp(unix)
		}
	}
	if v := c.FormValue(pushover.FieldURL); v != "" {
		check(message.SetURL(v))
	}
	if v := c.FormValue(pushover.FieldURLTitle); v != "" {
		check(message.SetURLTitle(v))
	}
	if v := c.FormValue(pushover.FieldSound); v != "" {
		check(message.SetSound(pushover.Sound(v)))
	}
	if v := c.FormValue(pushover.FieldPriority); v != "" {
		p, err := pushover.ParsePriority(v)
		check(err)
		if err == nil {
			priority = p
			check(message.SetPriority(p))
		}
	}

	if priority == pushover.PriorityEmergency {
		for _, field := range []string{pushover.FieldExpire, pushover.FieldRetry} {
			raw := c.FormValue(field)
			if raw == "" {
				errs = append(errs, field+" must be supplied with priority=2")
				continue
			}
			seconds, err := pushover.ParseSeconds(raw)
			if err != nil {
				check(err)
				continue
			}
			if field == pushover.FieldExpire {
				check(message.SetExpire(seconds))
			} else {
				check(message.SetRetry(seconds))
			}
		}
		if v := c.FormValue(pushover.FieldCallback); v != "" {
			check(message.SetCallbackURL(v))
		}
	}

	return message, priority, errs
}

func (s *Server) createReceiptLocked(appToken string, fields map[string]string) string {
	receipt := strings.ReplaceAll(uuid.NewString(), "-", "")[:30]

	expire, _ := strconv.Atoi(fields[pushover.FieldExpire])
	retry, _ := strconv.Atoi(fields[pushover.FieldRetry])
	now := s.now()

	s.receipts[receipt] = &receiptState{
		appToken:  appToken,
		callback:  fields[pushover.FieldCallback],
		retry:     time.Duration(retry) * time.Second,
		createdAt: now,
		expiresAt: now.Add(time.Duration(expire) * time.Second),
	}
	return receipt
}

func (s *Server) receiptBodyLocked(state *receiptState) fiber.Map {
	now := s.now()
	acknowledged := !state.acknowledgedAt.IsZero()
	expired := !acknowledged && !now.Before(state.expiresAt)

	// Deliveries repeat every retry interval until acknowledged or expired.
	lastDelivered := state.createdAt
	until := now
	if acknowledged {
		until = state.acknowledgedAt
	} else if expired {
		until = state.expiresAt
	}
	if state.retry > 0 && until.After(state.createdAt) {
		steps := until.Sub(state.createdAt) / state.retry
		lastDelivered = state.createdAt.Add(steps * state.retry)
	}

	body := fiber.Map{
		"acknowledged":      boolInt(acknowledged),
		"acknowledged_at":   unixOrZero(state.acknowledgedAt),
		"acknowledged_by":   state.acknowledgedBy,
		"last_delivered_at": lastDelivered.Unix(),
		"expired":           boolInt(expired),
		"expires_at":        state.expiresAt.Unix(),
		"called_back":       boolInt(!state.calledBackAt.IsZero()),
		"called_back_at":    unixOrZero(state.calledBackAt),
	}
	return body
}

func (s *Server) checkAppToken(token string) []string {
	if !pushover.IsValidToken(token) {
		return []string{"application token is invalid"}
	}
	return nil
}

func (s *Server) hasDevice(device string) bool {
	for _, d := range s.devices {
		if d == device {
			return true
		}
	}
	return false
}

func (s *Server) reject(c *fiber.Ctx, status int, requestID string, errs ...string) error {
	s.logger.Info("mock request rejected",
		zap.String("requestId", requestID),
		zap.Int("status", status),
		zap.Strings("errors", errs),
	)
	return c.Status(status).JSON(fiber.Map{
		"status":  0,
		"errors":  errs,
		"request": requestID,
	})
}

// setLimitHeaders reports the quota of a known application on every response.
func (s *Server) setLimitHeaders(c *fiber.Ctx, appToken string) error {
	usage, err := s.quota.Usage(c.UserContext(), appToken)
	if err != nil {
		s.logger.Error("quota lookup failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "quota backend unavailable")
	}
	writeLimitHeaders(c, usage)
	return nil
}

func writeLimitHeaders(c *fiber.Ctx, usage ratelimit.Usage) {
	c.Set(pushover.HeaderAppLimit, strconv.Itoa(usage.Limit))
	c.Set(pushover.HeaderAppRemaining, strconv.Itoa(usage.Remaining))
	c.Set(pushover.HeaderAppReset, strconv.FormatInt(usage.ResetAt.Unix(), 10))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
