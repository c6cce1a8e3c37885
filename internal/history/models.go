package history

import "time"

// Status is the outcome of a single notification attempt.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped" // notifier not configured
	StatusFailed    Status = "failed"
)

// DeliveryRecord represents one notification attempt. It never carries the
// message itself.
type DeliveryRecord struct {
	ID          int64         `json:"id"`
	RequestID   string        `json:"reqId"`
	Status      Status        `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Duration    time.Duration `json:"-"`
	Error       string        `json:"error,omitempty"`
}

// DurationMillis is the attempt duration rounded to milliseconds.
func (r DeliveryRecord) DurationMillis() int64 {
	return r.Duration.Milliseconds()
}

// Counts summarizes the records currently retained by a History.
type Counts struct {
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
