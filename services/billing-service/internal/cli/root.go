// Package cli holds the fleet-billing commands.
package cli

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fleet-billing",
		Short:         "Fleet invoice consolidation and recovery tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("env-file", ".env", "optional KEY=VALUE file loaded before reading the environment")
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func Execute() error {
	return newRootCmd().Execute()
}
