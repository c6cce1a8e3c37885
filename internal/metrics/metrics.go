// Package metrics holds the process-wide request and contact counters.
//
// A Registry is created once by the caller and passed to the components
// that update it. Counters only ever increase; they reset when the process
// restarts. An optional Sink mirrors every increment to an external metrics
// pipeline (see internal/telemetry).
package metrics

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Counter names a process counter.
type Counter string

const (
	Requests         Counter = "requests"
	Errors           Counter = "errors"
	ContactMessages  Counter = "contact_messages"
	ContactDelivered Counter = "contact_delivered"
	ContactSkipped   Counter = "contact_skipped"
	ContactFailures  Counter = "contact_delivery_failures"
	RateLimited      Counter = "rate_limited"
)

// Sink receives a copy of every increment. route is only set for Requests.
type Sink interface {
	Add(ctx context.Context, c Counter, route string)
}

// Snapshot is a point-in-time copy of the registry.
type Snapshot struct {
	StartedAt               time.Time        `json:"-"`
	RequestsTotal           int64            `json:"requestsTotal"`
	ErrorsTotal             int64            `json:"errorsTotal"`
	ContactMessages         int64            `json:"contactMessages"`
	ContactDelivered        int64            `json:"contactDelivered"`
	ContactSkipped          int64            `json:"contactSkipped"`
	ContactDeliveryFailures int64            `json:"contactDeliveryFailures"`
	RateLimitedTotal        int64            `json:"rateLimitedTotal"`
	RequestsByRoute         map[string]int64 `json:"requestsByRoute"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	startedAt time.Time
	counters  map[Counter]int64
	byRoute   map[string]int64
	sink      Sink
}

// NewRegistry creates an empty registry whose uptime starts at startedAt.
func NewRegistry(startedAt time.Time) *Registry {
	return &Registry{
		startedAt: startedAt,
		counters:  make(map[Counter]int64),
		byRoute:   make(map[string]int64),
	}
}

// SetSink attaches a mirror for increments. Call before serving traffic.
func (r *Registry) SetSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = s
}

// CountRequest increments the request total and the counter for route.
func (r *Registry) CountRequest(ctx context.Context, route string) {
	r.mu.Lock()
	r.counters[Requests]++
	r.byRoute[route]++
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink.Add(ctx, Requests, route)
	}
}

// Inc increments c by one. Use CountRequest for Requests.
func (r *Registry) Inc(ctx context.Context, c Counter) {
	r.mu.Lock()
	r.counters[c]++
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink.Add(ctx, c, "")
	}
}

// Get returns the current value of c.
func (r *Registry) Get(c Counter) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[c]
}

// StartedAt returns the registry creation time.
func (r *Registry) StartedAt() time.Time {
	return r.startedAt
}

// Uptime returns the whole seconds elapsed since StartedAt at now.
func (r *Registry) Uptime(now time.Time) int64 {
	secs := int64(now.Sub(r.startedAt) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// Snapshot copies the current counter values.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		StartedAt:               r.startedAt,
		RequestsTotal:           r.counters[Requests],
		ErrorsTotal:             r.counters[Errors],
		ContactMessages:         r.counters[ContactMessages],
		ContactDelivered:        r.counters[ContactDelivered],
		ContactSkipped:          r.counters[ContactSkipped],
		ContactDeliveryFailures: r.counters[ContactFailures],
		RateLimitedTotal:        r.counters[RateLimited],
		RequestsByRoute:         maps.Clone(r.byRoute),
	}
}
