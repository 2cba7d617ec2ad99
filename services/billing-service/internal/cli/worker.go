//services/billing-service/internal/cli/worker.go

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/dispatch"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/worker"
	"github.com/Tanmoy095/fleet-invoicing/shared/kafka"
	"github.com/Tanmoy095/fleet-invoicing/shared/rabbitmq"
	"github.com/spf13/cobra"
	tworker "go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newWorkerCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the reminder sweep, the paid-event consumer and the Temporal worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return runWorkers(ctx, a, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single reminder sweep and exit")
	return cmd
}

func runWorkers(ctx context.Context, a *app, once bool) error {
	common := a.cfg.CommonConfig
	policy := a.cfg.Policy

	// 1. Reminder job queue
	if !common.RabbitMQEnabled() {
		return fmt.Errorf("RABBITMQ_HOST is required to queue reminders")
	}
	rmq, err := rabbitmq.NewClient(common.GetRabbitMQURL())
	if err != nil {
		return err
	}
	defer rmq.Close()
	if err := rmq.DeclareQueue(policy.ReminderQueue); err != nil {
		return err
	}

	sweep := worker.NewReminderSweep(a.store, a.scheduler, rmq, worker.SweepConfig{
		Schedule:    policy.ReminderSweepSchedule,
		Workers:     policy.ReminderSweepWorkers,
		Queue:       policy.ReminderQueue,
		ItemTimeout: policy.ReminderItemTimeout,
	}, a.log)

	if once {
		res, err := sweep.RunOnce(ctx)
		if err != nil {
			return err
		}
		a.log.Info("reminder sweep done",
			zap.Int("owners", res.Owners), zap.Int("due", res.Due),
			zap.Int("queued", res.Queued), zap.Int("failed", res.Failed))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	// 2. Cron sweep
	g.Go(func() error { return sweep.Start(gctx) })

	// 3. Paid-event consumer
	if common.KafkaEnabled() {
		consumer := kafka.NewConsumer([]string{common.KafkaBroker}, common.KafkaTopic, common.KafkaGroupID, a.log)
		defer consumer.Close()
		g.Go(func() error {
			consumer.Start(gctx, a.paidEvents.Handle)
			return nil
		})
	}

	// 4. Temporal worker for the send flow
	if a.temporal != nil {
		w := tworker.New(a.temporal, dispatch.TaskQueue, tworker.Options{})
		w.RegisterWorkflow(dispatch.SendFleetInvoiceWorkflow)
		w.RegisterActivity(a.activities)
		if err := w.Start(); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		defer w.Stop()
		a.log.Info("temporal worker polling", zap.String("task_queue", dispatch.TaskQueue))
	}

	return g.Wait()
}
