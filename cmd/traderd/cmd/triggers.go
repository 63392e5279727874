package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quantrio/traderd/scheduler"
)

// Manual trigger entry points: each job body is invocable outside the
// schedule. Only the trigger/misfire logic is bypassed; lock, cache,
// calendar gate and risk limits all still apply.

var syncBalanceCmd = &cobra.Command{
	Use:   "sync-balance",
	Short: "Run the balance sync job once, outside the schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(a *app) scheduler.Job { return a.syncBalance })
	},
}

var executeStrategyCmd = &cobra.Command{
	Use:   "execute-strategy",
	Short: "Run the strategy execution job once, outside the schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(a *app) scheduler.Job { return a.executeStrategy })
	},
}

var updatePricesCmd = &cobra.Command{
	Use:   "update-prices",
	Short: "Run the asset price refresh job once, outside the schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, func(a *app) scheduler.Job { return a.updatePrices })
	},
}

func init() {
	rootCmd.AddCommand(syncBalanceCmd)
	rootCmd.AddCommand(executeStrategyCmd)
	rootCmd.AddCommand(updatePricesCmd)
}

func runOnce(cmd *cobra.Command, pick func(a *app) scheduler.Job) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.sched.RunNow(cmd.Context(), pick(a))
}
