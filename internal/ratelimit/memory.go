package ratelimit

import (
	"context"
	"sync"
	"time"
)

var _ Quota = (*MemoryQuota)(nil)

type memoryCounter struct {
	period time.Time
	used   int64
}

// MemoryQuota keeps quota counters in process memory.
type MemoryQuota struct {
	mu       sync.Mutex
	limit    int
	now      func() time.Time
	counters map[string]*memoryCounter
}

func NewMemoryQuota(limit int, now func() time.Time) *MemoryQuota {
	if now == nil {
		now = time.Now
	}
	return &MemoryQuota{
		limit:    limit,
		now:      now,
		counters: make(map[string]*memoryCounter),
	}
}

func (q *MemoryQuota) Consume(_ context.Context, appToken string) (Usage, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	counter, reset := q.counterLocked(appToken)
	if counter.used >= int64(q.limit) {
		return NewUsage(q.limit, counter.used, reset), false, nil
	}
	counter.used++
	return NewUsage(q.limit, counter.used, reset), true, nil
}

func (q *MemoryQuota) Usage(_ context.Context, appToken string) (Usage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	counter, reset := q.counterLocked(appToken)
	return NewUsage(q.limit, counter.used, reset), nil
}

func (q *MemoryQuota) Ping(context.Context) error { return nil }

func (q *MemoryQuota) counterLocked(appToken string) (*memoryCounter, time.Time) {
	start, reset := Period(q.now())

	counter, ok := q.counters[appToken]
	if !ok || !counter.period.Equal(start) {
		counter = &memoryCounter{period: start}
		q.counters[appToken] = counter
	}
	return counter, reset
}
