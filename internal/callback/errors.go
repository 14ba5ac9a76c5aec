package callback

import (
	"fmt"
	"net/http"

	"github.com/kursadbilgin/pushover/pkg/pushover"
)

// DeliveryError reports an acknowledgement that did not reach an
// application's callback URL. It classifies itself with the client's
// sentinels, so pushover.IsTransient decides whether a redelivery is worth it.
// StatusCode is zero when the callback never answered.
type DeliveryError struct {
	Receipt     string
	CallbackURL string
	StatusCode  int
	Body        string
	Cause       error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}

	prefix := fmt.Sprintf("acknowledgement of receipt %q to %s", e.Receipt, e.CallbackURL)
	switch {
	case e.StatusCode > 0 && e.Body != "":
		return fmt.Sprintf("%s rejected with status %d: %s", prefix, e.StatusCode, e.Body)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s rejected with status %d", prefix, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("%s failed: %v", prefix, e.Cause)
	}
	return prefix + " failed"
}

// Unwrap exposes the cause and the status class: 429 maps to
// pushover.ErrRateLimited and 5xx to pushover.ErrServerUnavailable.
func (e *DeliveryError) Unwrap() []error {
	if e == nil {
		return nil
	}

	errs := make([]error, 0, 2)
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		errs = append(errs, pushover.ErrRateLimited)
	case e.StatusCode >= http.StatusInternalServerError:
		errs = append(errs, pushover.ErrServerUnavailable)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
