// Package contact validates contact form submissions and forwards them to
// the configured notifier.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"portfolioos/internal/history"
	"portfolioos/internal/metrics"
	"portfolioos/internal/notify"
)

// Service handles accepted submissions.
type Service struct {
	notifier notify.Notifier
	metrics  *metrics.Registry
	ledger   *history.History
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a contact service. ledger may be nil.
func NewService(notifier notify.Notifier, reg *metrics.Registry, ledger *history.History, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		notifier: notifier,
		metrics:  reg,
		ledger:   ledger,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit counts a validated submission and attempts delivery.
//
// A missing notifier configuration is not an error. A failed delivery is
// returned to the caller after the submission has already been counted, so
// contactMessages includes submissions whose delivery failed; the
// delivered/skipped/failed counters tell them apart.
func (s *Service) Submit(ctx context.Context, reqID string, sub Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.metrics.Inc(ctx, metrics.ContactMessages)

	started := s.now()
	record := history.DeliveryRecord{RequestID: reqID, StartedAt: started}

	var err error
	if s.notifier.Enabled() {
		err = s.notifier.Send(ctx, Format(sub))
	} else {
		err = notify.ErrDisabled
	}
	record.CompletedAt = s.now()

	switch {
	case err == nil:
		record.Status = history.StatusDelivered
		s.metrics.Inc(ctx, metrics.ContactDelivered)
		s.logger.Info("telegram.notify.sent", "reqId", reqID)
	case errors.Is(err, notify.ErrDisabled):
		record.Status = history.StatusSkipped
		s.metrics.Inc(ctx, metrics.ContactSkipped)
		s.logger.Debug("telegram.notify.skipped", "reqId", reqID)
		err = nil
	default:
		record.Status = history.StatusFailed
		record.Error = err.Error()
		s.metrics.Inc(ctx, metrics.ContactFailures)
		err = fmt.Errorf("contact notification: %w", err)
	}

	if s.ledger != nil {
		s.ledger.Record(record)
	}

	return err
}
