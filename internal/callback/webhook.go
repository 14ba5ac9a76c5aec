package callback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/pushover/pkg/pushover"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	maxErrorBody          = 256
)

var _ Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts acknowledgements as form data, the way the Pushover API does.
type WebhookNotifier struct {
	client *resty.Client
}

func NewWebhookNotifier() *WebhookNotifier {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	notifier, _ := NewWebhookNotifierWithClient(client)
	return notifier
}

func NewWebhookNotifierWithClient(client *resty.Client) (*WebhookNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookNotifier{client: client}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, callbackURL string, ack Acknowledgement) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("notifier is not initialized")
	}

	endpoint := strings.TrimSpace(callbackURL)
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return &DeliveryError{
			Receipt:     ack.Receipt,
			CallbackURL: endpoint,
			Cause:       fmt.Errorf("%w: invalid callback url: %v", pushover.ErrInvalidArgument, err),
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"receipt":                ack.Receipt,
			"acknowledged":           "1",
			"acknowledged_at":        strconv.FormatInt(ack.AcknowledgedAt.Unix(), 10),
			"acknowledged_by":        ack.AcknowledgedBy,
			"acknowledged_by_device": ack.Device,
		}).
		Post(endpoint)
	if err != nil {
		return &DeliveryError{Receipt: ack.Receipt, CallbackURL: endpoint, Cause: err}
	}
	if response == nil {
		return &DeliveryError{Receipt: ack.Receipt, CallbackURL: endpoint, Cause: errors.New("empty response")}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &DeliveryError{
		Receipt:     ack.Receipt,
		CallbackURL: endpoint,
		StatusCode:  statusCode,
		Body:        truncate(strings.TrimSpace(response.String()), maxErrorBody),
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
