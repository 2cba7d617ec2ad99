//services/billing-service/internal/cli/app.go

package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/config"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/dispatch"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/invoice"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/ledger"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/recovery"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/store/memory"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/store/postgres"
	"github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/worker"
	sharedconfig "github.com/Tanmoy095/fleet-invoicing/shared/config"
	"github.com/Tanmoy095/fleet-invoicing/shared/kafka"
	"github.com/Tanmoy095/fleet-invoicing/shared/logger"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// app is the wired dependency graph shared by every command.
type app struct {
	cfg        *config.BillingConfig
	log        *zap.Logger
	store      ledger.LedgerStore
	invoices   *invoice.Manager
	tracker    *recovery.Tracker
	scheduler  *recovery.Scheduler
	dashboard  *recovery.Dashboard
	activities *dispatch.Activities
	dispatcher dispatch.Dispatcher
	paidEvents *worker.PaidEventHandler
	temporal   client.Client

	closers []func() error
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	// 1. Config and logging
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := sharedconfig.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() error { _ = log.Sync(); return nil })

	// 2. Ledger store
	if err := a.openStore(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	// 3. Domain services
	policy := cfg.Policy
	a.invoices = invoice.NewManager(a.store, log, invoice.Options{
		NumberPrefix:       policy.InvoiceNumberPrefix,
		MaxNumberAttempts:  policy.MaxNumberAttempts,
		CascadeConcurrency: policy.CascadeConcurrency,
	})
	a.tracker = recovery.NewTracker(a.store, log)
	a.scheduler = recovery.NewScheduler(a.store, log)
	a.dashboard = recovery.NewDashboard(a.store)
	a.paidEvents = worker.NewPaidEventHandler(a.invoices, a.tracker, log)
	a.activities = &dispatch.Activities{Invoices: a.invoices, Tracker: a.tracker}

	// 4. Domain events
	common := cfg.CommonConfig
	if common.KafkaEnabled() {
		producer := kafka.NewKafkaProducer(common.KafkaBroker, common.KafkaTopic)
		a.closers = append(a.closers, producer.Close)
		a.invoices.WithPublisher(producer)
		log.Info("publishing fleet invoice events to kafka", zap.String("topic", common.KafkaTopic))
	} else {
		// Without a broker the paid-event follow-up runs in process.
		a.invoices.WithPublisher(localEvents{handler: a.paidEvents})
		log.Warn("kafka not configured, fleet invoice events stay in process")
	}

	// 5. Send flow
	if common.TemporalEnabled() {
		c, err := client.Dial(client.Options{HostPort: common.TemporalHostPort})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("dial temporal %s: %w", common.TemporalHostPort, err)
		}
		a.temporal = c
		a.closers = append(a.closers, func() error { c.Close(); return nil })
		a.dispatcher = dispatch.NewTemporalDispatcher(c, log)
		log.Info("send flow runs on temporal", zap.String("host", common.TemporalHostPort))
	} else {
		a.dispatcher = dispatch.NewInlineDispatcher(a.activities, log)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	common := a.cfg.CommonConfig
	if !common.DatabaseEnabled() {
		a.log.Warn("DB_HOST not set, using the in-memory ledger")
		a.store = memory.New()
		return nil
	}
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	a.store = postgres.New(db)
	a.log.Info("connected to postgres", zap.String("host", common.DBHost), zap.String("db", common.DBName))
	return nil
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := postgres.Open(ctx, a.cfg.CommonConfig.GetDBURL())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// localEvents hands fleet invoice events straight to the paid-event handler.
type localEvents struct {
	handler *worker.PaidEventHandler
}

func (l localEvents) Publish(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return l.handler.Handle(ctx, []byte(key), raw)
}
