// Package ratelimit implements a per-client sliding window rate limiter.
//
// Each client key keeps the timestamps of its recent requests. A request is
// allowed when, after dropping timestamps older than the window and adding
// the current one, the number of timestamps does not exceed the threshold.
// The number of tracked keys is capped; the least recently seen key is
// evicted when a new key arrives at the cap.
package ratelimit

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultWindow is the length of the sliding window.
	DefaultWindow = time.Minute

	// DefaultThreshold is the number of requests allowed per window.
	DefaultThreshold = 90

	// DefaultMaxKeys bounds the number of client keys tracked at once.
	DefaultMaxKeys = 10000
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	// Count is the number of requests in the window, including this one.
	// It saturates at threshold+1.
	Count int
	// RetryAfter is how long the client should wait before the next
	// request can be allowed. Zero when Allowed is true.
	RetryAfter time.Duration
}

// window holds the retained timestamps for one key, oldest first.
type window struct {
	key   string
	times []time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*list.Element // key -> element holding *window
	lru       *list.List               // front = most recently seen
	threshold int
	size      time.Duration
	maxKeys   int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.size = d
		}
	}
}

// WithMaxKeys overrides the tracked key cap.
func WithMaxKeys(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxKeys = n
		}
	}
}

// New creates a limiter allowing threshold requests per window for each key.
// A threshold below 1 falls back to DefaultThreshold.
func New(threshold int, opts ...Option) *Limiter {
	if threshold < 1 {
		threshold = DefaultThreshold
	}

	l := &Limiter{
		windows:   make(map[string]*list.Element),
		lru:       list.New(),
		threshold: threshold,
		size:      DefaultWindow,
		maxKeys:   DefaultMaxKeys,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Threshold returns the configured number of requests per window.
func (l *Limiter) Threshold() int {
	return l.threshold
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.size
}

// Allow records a request for key at now and reports whether it is within
// the limit. Rejected requests are recorded too.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.touch(key)
	w.times = prune(w.times, now.Add(-l.size))
	w.times = append(w.times, now)

	// Only the newest threshold+1 timestamps can influence a decision.
	if keep := l.threshold + 1; len(w.times) > keep {
		w.times = append(w.times[:0], w.times[len(w.times)-keep:]...)
	}

	count := len(w.times)
	if count <= l.threshold {
		return Decision{Allowed: true, Count: count}
	}

	// The next request is allowed once only threshold-1 of the retained
	// timestamps remain in the window.
	oldestBlocking := w.times[count-l.threshold]
	retry := oldestBlocking.Add(l.size).Sub(now)
	if retry < 0 {
		retry = 0
	}

	return Decision{Allowed: false, Count: count, RetryAfter: retry}
}

// Sweep drops every key whose newest timestamp is outside the window at now.
// It returns the number of keys removed.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.size)
	removed := 0

	// Walk from the least recently seen end; stop at the first live key.
	for e := l.lru.Back(); e != nil; {
		w := e.Value.(*window)
		if len(w.times) > 0 && w.times[len(w.times)-1].After(cutoff) {
			break
		}
		prev := e.Prev()
		l.lru.Remove(e)
		delete(l.windows, w.key)
		removed++
		e = prev
	}

	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.windows)
}

// touch returns the window for key, creating it and evicting the least
// recently seen key when the cap is reached. Caller holds mu.
func (l *Limiter) touch(key string) *window {
	if e, ok := l.windows[key]; ok {
		l.lru.MoveToFront(e)
		return e.Value.(*window)
	}

	if len(l.windows) >= l.maxKeys {
		if oldest := l.lru.Back(); oldest != nil {
			l.lru.Remove(oldest)
			delete(l.windows, oldest.Value.(*window).key)
		}
	}

	w := &window{key: key}
	l.windows[key] = l.lru.PushFront(w)
	return w
}

// prune drops timestamps at or before cutoff. times is sorted ascending.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0], times[i:]...)
}
