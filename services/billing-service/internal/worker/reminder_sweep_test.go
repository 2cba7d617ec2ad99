package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/recovery"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/store/memory"
	"github.com/Tanmoy095/fleet-invoicing/shared/contracts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	mu     sync.Mutex
	jobs   []contracts.ReminderJob
	queues []string
	failOn map[uuid.UUID]bool
}

func (q *fakeQueue) PublishJSON(ctx context.Context, queue string, v any) error {
	job := v.(contracts.ReminderJob)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failOn[job.TrackingID] {
		return errors.New("channel closed")
	}
	q.jobs = append(q.jobs, job)
	q.queues = append(q.queues, queue)
	return nil
}

func openRecord(t *testing.T, tr *recovery.Tracker, owner uuid.UUID, sent time.Time, amount int64) ledger.InvoiceTracking {
	t.Helper()
	rec, err := tr.OpenTracking(context.Background(), recovery.OpenTrackingRequest{
		InvoiceID: uuid.New(), OwnerID: owner, Amount: decimal.NewFromInt(amount), SentAt: sent,
	})
	require.NoError(t, err)
	return rec
}

func TestReminderSweep_RunOnce(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tr := recovery.NewTracker(s, zap.NewNop()).WithClock(clock)
	sched := recovery.NewScheduler(s, zap.NewNop()).WithClock(clock)

	ownerA, ownerB := uuid.New(), uuid.New()
	dueA := openRecord(t, tr, ownerA, now.AddDate(0, 0, -20), 300) // next reminder 13 days ago
	openRecord(t, tr, ownerA, now.AddDate(0, 0, -2), 100)          // not due yet
	dueB := openRecord(t, tr, ownerB, now.AddDate(0, 0, -40), 800) // due
	paid := openRecord(t, tr, ownerB, now.AddDate(0, 0, -40), 50)  // paid, never reminded
	_, err := tr.RecordPayment(ctx, paid.ID, decimal.NewFromInt(50))
	require.NoError(t, err)

	q := &fakeQueue{}
	sweep := NewReminderSweep(s, sched, q, SweepConfig{Workers: 2, Queue: "invoice_reminders"}, zap.NewNop()).WithClock(clock)

	res, err := sweep.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Owners: 2, Due: 2, Queued: 2}, res)

	byTracking := map[uuid.UUID]contracts.ReminderJob{}
	for _, j := range q.jobs {
		byTracking[j.TrackingID] = j
	}
	require.Contains(t, byTracking, dueA.ID)
	require.Contains(t, byTracking, dueB.ID)
	assert.Equal(t, 1, byTracking[dueA.ID].ReminderNumber)
	assert.Equal(t, "aging", byTracking[dueA.ID].Bucket)
	assert.Equal(t, 20, byTracking[dueA.ID].DaysOutstanding)
	assert.Equal(t, "overdue", byTracking[dueB.ID].Bucket)
	assert.True(t, decimal.NewFromInt(800).Equal(byTracking[dueB.ID].AmountOutstanding))
	assert.Equal(t, []string{"invoice_reminders", "invoice_reminders"}, q.queues)

	got, err := s.GetTracking(ctx, dueA.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReminderCount)
	assert.Equal(t, now.Add(7*24*time.Hour), *got.NextReminderAt)

	// Nothing is due on an immediate second pass.
	res, err = sweep.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Due)
}

func TestReminderSweep_PublishFailureLeavesRecordDue(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tr := recovery.NewTracker(s, zap.NewNop())
	sched := recovery.NewScheduler(s, zap.NewNop()).WithClock(clock)

	owner := uuid.New()
	ok := openRecord(t, tr, owner, now.AddDate(0, 0, -10), 100)
	broken := openRecord(t, tr, owner, now.AddDate(0, 0, -10), 100)

	q := &fakeQueue{failOn: map[uuid.UUID]bool{broken.ID: true}}
	sweep := NewReminderSweep(s, sched, q, SweepConfig{Queue: "invoice_reminders"}, zap.NewNop()).WithClock(clock)

	res, err := sweep.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Queued)
	assert.Equal(t, 1, res.Failed)

	got, err := s.GetTracking(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReminderCount)
	got, err = s.GetTracking(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReminderCount)

	due, err := sched.DueNow(ctx, owner, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, broken.ID, due[0].ID)
}

func TestReminderSweep_StartRejectsBadSchedule(t *testing.T) {
	sweep := NewReminderSweep(memory.New(), recovery.NewScheduler(memory.New(), zap.NewNop()), &fakeQueue{},
		SweepConfig{Schedule: "every now and then"}, zap.NewNop())
	assert.Error(t, sweep.Start(context.Background()))
}

func TestReminderSweep_StartStopsOnCancel(t *testing.T) {
	s := memory.New()
	sweep := NewReminderSweep(s, recovery.NewScheduler(s, zap.NewNop()), &fakeQueue{},
		SweepConfig{Schedule: "@every 1h"}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweep.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop")
	}
}
