//services/billing-service/internal/recovery/reminder.go

package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reminder cadence keyed on the reminder count after the send.
// It has to stay exactly 7, 14, then 30 days.
var reminderIntervals = []time.Duration{
	7 * day,  // 1st
	14 * day, // 2nd
	30 * day, // 3rd and later
}

// NextReminderInterval is the wait before the next reminder once count reminders have gone out.
func NextReminderInterval(count int) time.Duration {
	switch {
	case count <= 1:
		return reminderIntervals[0]
	case count == 2:
		return reminderIntervals[1]
	default:
		return reminderIntervals[2]
	}
}

// Scheduler keeps the follow-up cadence of tracked invoices.
type Scheduler struct {
	store ledger.TrackingStore
	log   *zap.Logger
	clock func() time.Time
}

func NewScheduler(store ledger.TrackingStore, log *zap.Logger) *Scheduler {
	return &Scheduler{store: store, log: log.Named("recovery.scheduler"), clock: time.Now}
}

func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// RecordReminderSent bumps the reminder count and pushes next_reminder_at out by the next interval.
func (s *Scheduler) RecordReminderSent(ctx context.Context, trackingID uuid.UUID) (ledger.InvoiceTracking, error) {
	now := s.clock().UTC()
	t, err := s.store.UpdateTracking(ctx, trackingID, func(t *ledger.InvoiceTracking) error {
		t.ReminderCount++
		next := now.Add(NextReminderInterval(t.ReminderCount))
		t.LastReminderAt = &now
		t.NextReminderAt = &next
		return nil
	})
	if err != nil {
		return ledger.InvoiceTracking{}, fmt.Errorf("record reminder: %w", err)
	}
	s.log.Debug("reminder recorded",
		zap.String("tracking_id", trackingID.String()),
		zap.Int("reminder_count", t.ReminderCount),
		zap.Time("next_reminder_at", *t.NextReminderAt),
	)
	return t, nil
}

// DueNow lists the owner's pending records whose next reminder is at or before now.
func (s *Scheduler) DueNow(ctx context.Context, ownerID uuid.UUID, now time.Time) ([]ledger.InvoiceTracking, error) {
	records, err := s.store.ListTracking(ctx, ownerID, ledger.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("list tracking: %w", err)
	}
	return FilterDue(records, now), nil
}

// FilterDue keeps pending records with next_reminder_at <= now. Records without a
// next reminder are never due.
func FilterDue(records []ledger.InvoiceTracking, now time.Time) []ledger.InvoiceTracking {
	var due []ledger.InvoiceTracking
	for _, r := range records {
		if r.PaymentStatus != ledger.PaymentPending || r.NextReminderAt == nil {
			continue
		}
		if !r.NextReminderAt.After(now) {
			due = append(due, r)
		}
	}
	return due
}
