package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httphandler "github.com/Tanmoy095/fleet-invoicing/services/billing-service/internal/handler/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			h := httphandler.NewHandler(httphandler.Deps{
				Invoices:         a.invoices,
				Dispatcher:       a.dispatcher,
				Tracking:         a.tracker,
				Reminders:        a.scheduler,
				Dashboard:        a.dashboard,
				SubscriptionCost: a.cfg.Policy.Cost(),
			}, a.log)

			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           h.Routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Info("http server listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.log.Info("shutting down http server")
			return srv.Shutdown(shutdownCtx)
		},
	}
}
