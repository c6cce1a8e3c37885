package history

import (
	"sync"
)

// DefaultCapacity is the number of records kept when none is configured.
const DefaultCapacity = 100

// History keeps the most recent delivery records in a fixed-size ring.
// Records are lost on restart.
type History struct {
	mu      sync.RWMutex
	records []DeliveryRecord
	next    int // slot the next record is written to
	size    int
	lastID  int64
}

// NewHistory creates a history holding up to capacity records.
// A capacity below 1 means DefaultCapacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &History{records: make([]DeliveryRecord, capacity)}
}

// Capacity returns the maximum number of retained records.
func (h *History) Capacity() int {
	return len(h.records)
}

// Record stores a delivery outcome and returns its assigned id. When the ring
// is full the oldest record is overwritten.
func (h *History) Record(record DeliveryRecord) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	record.ID = h.lastID
	if record.Duration == 0 && !record.CompletedAt.IsZero() {
		record.Duration = record.CompletedAt.Sub(record.StartedAt)
	}

	h.records[h.next] = record
	h.next = (h.next + 1) % len(h.records)
	if h.size < len(h.records) {
		h.size++
	}

	return record.ID
}

// Latest returns the most recent record, or false when nothing was recorded.
func (h *History) Latest() (DeliveryRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.size == 0 {
		return DeliveryRecord{}, false
	}
	return h.records[h.index(0)], true
}

// Recent returns up to limit records, newest first.
func (h *History) Recent(limit int) []DeliveryRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.size {
		limit = h.size
	}

	out := make([]DeliveryRecord, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, h.records[h.index(i)])
	}
	return out
}

// Counts tallies retained records by status.
func (h *History) Counts() Counts {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var c Counts
	for i := 0; i < h.size; i++ {
		switch h.records[h.index(i)].Status {
		case StatusDelivered:
			c.Delivered++
		case StatusSkipped:
			c.Skipped++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// index maps an age (0 = newest) to a slot. Caller holds the lock.
func (h *History) index(age int) int {
	n := len(h.records)
	return (h.next - 1 - age + 2*n) % n
}
