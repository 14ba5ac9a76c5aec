// Package ratelimit tracks the monthly message quota of each application.
package ratelimit

import (
	"context"
	"time"
)

// Usage is the quota state reported through the X-Limit-App-* headers.
type Usage struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Quota counts messages per application token within a calendar month.
type Quota interface {
	// Consume takes one message from the application's quota. When the
	// quota is exhausted ok is false and nothing is taken.
	Consume(ctx context.Context, appToken string) (usage Usage, ok bool, err error)
	Usage(ctx context.Context, appToken string) (Usage, error)
	Ping(ctx context.Context) error
}

// Period returns the start of the calendar month containing now and the
// start of the next one, both in UTC.
func Period(now time.Time) (start time.Time, reset time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func NewUsage(limit int, used int64, resetAt time.Time) Usage {
	remaining := int64(limit) - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Limit: limit, Remaining: int(remaining), ResetAt: resetAt}
}
