//services/billing-service/internal/worker/reminder_sweep.go

package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/recovery"
	"github.com/Tanmoy095/fleet-invoicing/shared/contracts"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobQueue is where reminder jobs go for delivery. Implemented by shared/rabbitmq.
type JobQueue interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

type OwnerLister interface {
	ListTrackingOwners(ctx context.Context, status ledger.PaymentStatus) ([]uuid.UUID, error)
}

type ReminderScheduler interface {
	DueNow(ctx context.Context, ownerID uuid.UUID, now time.Time) ([]ledger.InvoiceTracking, error)
	RecordReminderSent(ctx context.Context, trackingID uuid.UUID) (ledger.InvoiceTracking, error)
}

type SweepConfig struct {
	Schedule    string // cron spec, e.g. "@every 15m"
	Workers     int
	Queue       string
	ItemTimeout time.Duration
}

type SweepResult struct {
	Owners int
	Due    int
	Queued int
	Failed int
}

// ReminderSweep periodically finds tracking records due for a reminder, hands a job to
// the delivery queue and advances the record's cadence.
//
// A job is published before the reminder is recorded. If recording fails the next sweep
// publishes the reminder again, so delivery is at least once.
type ReminderSweep struct {
	owners    OwnerLister
	scheduler ReminderScheduler
	queue     JobQueue
	cfg       SweepConfig
	log       *zap.Logger
	clock     func() time.Time
}

func NewReminderSweep(owners OwnerLister, scheduler ReminderScheduler, queue JobQueue, cfg SweepConfig, log *zap.Logger) *ReminderSweep {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 10 * time.Second
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 15m"
	}
	return &ReminderSweep{
		owners:    owners,
		scheduler: scheduler,
		queue:     queue,
		cfg:       cfg,
		log:       log.Named("worker.reminder_sweep"),
		clock:     time.Now,
	}
}

func (r *ReminderSweep) WithClock(clock func() time.Time) *ReminderSweep {
	r.clock = clock
	return r
}

// Start runs the sweep on its cron schedule until ctx is done. Blocking call.
// A run that overlaps the next tick makes that tick skip.
func (r *ReminderSweep) Start(ctx context.Context) error {
	logger := cronLogger{log: r.log}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(r.cfg.Schedule, func() { _, _ = r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule reminder sweep %q: %w", r.cfg.Schedule, err)
	}
	r.log.Info("reminder sweep started", zap.String("schedule", r.cfg.Schedule), zap.Int("workers", r.cfg.Workers))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Info("reminder sweep stopped")
	return nil
}

// RunOnce performs a single sweep across every owner with pending records.
func (r *ReminderSweep) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	owners, err := r.owners.ListTrackingOwners(ctx, ledger.PaymentPending)
	if err != nil {
		r.log.Error("list owners", zap.Error(err))
		return res, fmt.Errorf("list owners: %w", err)
	}
	res.Owners = len(owners)

	now := r.clock().UTC()
	var due []ledger.InvoiceTracking
	for _, owner := range owners {
		recs, err := r.scheduler.DueNow(ctx, owner, now)
		if err != nil {
			// One owner's failure should not starve the others.
			r.log.Error("due now", zap.String("owner_id", owner.String()), zap.Error(err))
			continue
		}
		due = append(due, recs...)
	}
	res.Due = len(due)
	if len(due) == 0 {
		r.log.Debug("no reminders due", zap.Int("owners", res.Owners))
		return res, nil
	}

	// Worker pool over a buffered jobs channel.
	jobs := make(chan ledger.InvoiceTracking, len(due))
	var (
		wg             sync.WaitGroup
		queued, failed atomic.Int64
	)
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for rec := range jobs {
				if err := r.remind(ctx, rec, now); err != nil {
					failed.Add(1)
					r.log.Warn("reminder failed", zap.Int("worker", id), zap.String("tracking_id", rec.ID.String()), zap.Error(err))
					continue
				}
				queued.Add(1)
			}
		}(w)
	}
	for _, rec := range due {
		jobs <- rec
	}
	close(jobs)
	wg.Wait()

	res.Queued, res.Failed = int(queued.Load()), int(failed.Load())
	r.log.Info("reminder sweep finished",
		zap.Int("owners", res.Owners),
		zap.Int("due", res.Due),
		zap.Int("queued", res.Queued),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (r *ReminderSweep) remind(ctx context.Context, rec ledger.InvoiceTracking, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ItemTimeout)
	defer cancel()

	days, bucket := recovery.Classify(rec.SentAt, now)
	job := contracts.ReminderJob{
		TrackingID:        rec.ID,
		InvoiceID:         rec.InvoiceID,
		OwnerID:           rec.OwnerID,
		ReminderNumber:    rec.ReminderCount + 1,
		AmountOutstanding: rec.Outstanding(),
		DaysOutstanding:   days,
		Bucket:            string(bucket),
		QueuedAt:          now,
	}
	if err := r.queue.PublishJSON(ctx, r.cfg.Queue, job); err != nil {
		return fmt.Errorf("publish reminder job: %w", err)
	}
	if _, err := r.scheduler.RecordReminderSent(ctx, rec.ID); err != nil {
		return fmt.Errorf("record reminder: %w", err)
	}
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
