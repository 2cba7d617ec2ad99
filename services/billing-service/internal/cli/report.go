package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var owner, cost string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print an owner's recovery snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("--owner: %w", err)
			}
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			subscription := a.cfg.Policy.Cost()
			if cost != "" {
				if subscription, err = decimal.NewFromString(cost); err != nil {
					return fmt.Errorf("--subscription-cost: %w", err)
				}
			}
			snap, err := a.dashboard.Snapshot(cmd.Context(), ownerID, subscription)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	cmd.Flags().StringVar(&cost, "subscription-cost", "", "subscription cost used for ROI (defaults to the policy)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// newApp migrates when a database is configured.
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.cfg.CommonConfig.DatabaseEnabled() {
				return fmt.Errorf("DB_HOST is required to migrate")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}
