package analyses

import (
	"sync"
	"time"
)

const (
	pollLimitWindow = 1 * time.Second
	// pollPruneEvery bounds how often stale entries are swept.
	pollPruneEvery = 1024
)

// pollLimiter allows one status poll per owner and job per window.
type pollLimiter struct {
	mu      sync.Mutex
	lastHit map[string]time.Time
	now     func() time.Time
	window  time.Duration
	calls   int
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = pollLimitWindow
	}
	return &pollLimiter{
		lastHit: make(map[string]time.Time),
		now:     now,
		window:  window,
	}
}

// Allow reports whether ownerID may poll jobID again and, when not, how long
// the caller should wait.
func (l *pollLimiter) Allow(ownerID, jobID string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	key := ownerID + "|" + jobID
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%pollPruneEvery == 0 {
		l.pruneLocked(now)
	}
	if last, ok := l.lastHit[key]; ok {
		if elapsed := now.Sub(last); elapsed < l.window {
			return false, l.window - elapsed
		}
	}
	l.lastHit[key] = now
	return true, 0
}

func (l *pollLimiter) pruneLocked(now time.Time) {
	for key, last := range l.lastHit {
		if now.Sub(last) >= l.window {
			delete(l.lastHit, key)
		}
	}
}

func (l *pollLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lastHit)
}
