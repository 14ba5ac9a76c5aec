// Package callback delivers emergency-message acknowledgements to the
// callback URL supplied with the message.
package callback

import (
	"context"
	"time"
)

// Acknowledgement is what gets reported when a user acknowledges an emergency message.
type Acknowledgement struct {
	Receipt        string
	AcknowledgedAt time.Time
	AcknowledgedBy string
	Device         string
}

// Notifier is the outbound callback delivery port.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, ack Acknowledgement) error
}
