package openai

import (
	"sync"
	"time"
)

// DailyQuota counts successful provider calls against a hard daily ceiling.
// The window is fixed: the counter resets at midnight UTC. Safe for
// concurrent use; constructed once per process and passed to the client.
type DailyQuota struct {
	mu    sync.Mutex
	limit int
	count int
	day   time.Time
	now   func() time.Time
}

// NewDailyQuota creates a quota with the given per-day ceiling.
func NewDailyQuota(limit int) *DailyQuota {
	return &DailyQuota{limit: limit, now: time.Now}
}

// Allow reports whether another call may proceed today.
func (q *DailyQuota) Allow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	return q.count < q.limit
}

// Record counts one successful call against today's budget.
func (q *DailyQuota) Record() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	q.count++
}

// Remaining returns today's unused budget.
func (q *DailyQuota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	if left := q.limit - q.count; left > 0 {
		return left
	}
	return 0
}

func (q *DailyQuota) roll() {
	today := q.now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(q.day) {
		q.day = today
		q.count = 0
	}
}
