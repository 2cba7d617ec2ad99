package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/store/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestNextReminderInterval(t *testing.T) {
	assert.Equal(t, 7*day, NextReminderInterval(0))
	assert.Equal(t, 7*day, NextReminderInterval(1))
	assert.Equal(t, 14*day, NextReminderInterval(2))
	assert.Equal(t, 30*day, NextReminderInterval(3))
	assert.Equal(t, 30*day, NextReminderInterval(10))
}

func TestRecordReminderSent_Escalates(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	clock := &stepClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	sched := NewScheduler(s, zap.NewNop()).WithClock(clock.Now)

	rec := ledger.InvoiceTracking{ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: uuid.New(), PaymentStatus: ledger.PaymentPending}
	_, err := s.CreateTracking(ctx, rec)
	require.NoError(t, err)

	want := []time.Duration{7 * day, 14 * day, 30 * day, 30 * day}
	for i, interval := range want {
		got, err := sched.RecordReminderSent(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, got.ReminderCount)
		require.NotNil(t, got.LastReminderAt)
		require.NotNil(t, got.NextReminderAt)
		assert.Equal(t, clock.now, *got.LastReminderAt)
		assert.Equal(t, interval, got.NextReminderAt.Sub(*got.LastReminderAt))
		clock.now = *got.NextReminderAt
	}
}

func TestRecordReminderSent_NotFound(t *testing.T) {
	sched := NewScheduler(memory.New(), zap.NewNop())
	_, err := sched.RecordReminderSent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDueNow(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	owner := uuid.New()
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	rows := []ledger.InvoiceTracking{
		{ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: owner, PaymentStatus: ledger.PaymentPending, NextReminderAt: &past},
		{ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: owner, PaymentStatus: ledger.PaymentPending, NextReminderAt: &now},
		{ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: owner, PaymentStatus: ledger.PaymentPending, NextReminderAt: &future},
		{ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: owner, PaymentStatus: ledger.PaymentPartial, NextReminderAt: &past},
		{ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: owner, PaymentStatus: ledger.PaymentPending},
		{ID: uuid.New(), InvoiceID: uuid.New(), OwnerID: uuid.New(), PaymentStatus: ledger.PaymentPending, NextReminderAt: &past},
	}
	for _, r := range rows {
		_, err := s.CreateTracking(ctx, r)
		require.NoError(t, err)
	}

	due, err := NewScheduler(s, zap.NewNop()).DueNow(ctx, owner, now)
	require.NoError(t, err)
	ids := map[uuid.UUID]bool{}
	for _, d := range due {
		ids[d.ID] = true
	}
	assert.Len(t, due, 2)
	assert.True(t, ids[rows[0].ID])
	assert.True(t, ids[rows[1].ID])
}

func TestDueNow_AfterOpenTracking(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	owner := uuid.New()
	sent := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	tracker := NewTracker(s, zap.NewNop())
	_, err := tracker.OpenTracking(ctx, OpenTrackingRequest{InvoiceID: uuid.New(), OwnerID: owner, Amount: decimal.NewFromInt(100), SentAt: sent})
	require.NoError(t, err)

	sched := NewScheduler(s, zap.NewNop())
	due, err := sched.DueNow(ctx, owner, sent.Add(7*day-time.Second))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = sched.DueNow(ctx, owner, sent.Add(7*day))
	require.NoError(t, err)
	assert.Len(t, due, 1)
}
