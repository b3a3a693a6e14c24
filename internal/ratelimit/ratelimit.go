// Package ratelimit implements the fixed-window per-client limiter applied
// to inbound API requests.
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// cleanupThreshold bounds the window table; once exceeded, expired windows
// are swept on the next request.
const cleanupThreshold = 500

// window is one client's counter for the current fixed window.
type window struct {
	count   int
	resetAt time.Time
}

// FixedWindowLimiter counts requests per client key in fixed windows. The
// first request of a window starts it; the counter resets when the window
// elapses, so a client can burst up to twice the ceiling across a window
// boundary. That is accepted for this traffic.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit    int
	interval time.Duration
	now      func() time.Time
}

// NewFixedWindowLimiter creates a limiter allowing limit requests per
// interval per client key.
func NewFixedWindowLimiter(limit int, interval time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// window's ceiling.
func (l *FixedWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		if len(l.windows) > cleanupThreshold {
			l.sweepLocked(now)
		}
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.interval)}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *FixedWindowLimiter) sweepLocked(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// Len returns the number of tracked windows, expired included.
func (l *FixedWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// ClientKey derives the limiter key from a request: the first hop in
// X-Forwarded-For, or a shared fallback key when the proxy header is absent.
// Clients without the header pool into one bucket rather than bypassing the
// limiter.
func ClientKey(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return "unknown"
	}
	if i := strings.Index(forwarded, ","); i >= 0 {
		forwarded = forwarded[:i]
	}
	ip := strings.TrimSpace(forwarded)
	if ip == "" {
		return "unknown"
	}
	return ip
}
