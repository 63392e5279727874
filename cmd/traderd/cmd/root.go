package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "traderd",
	Short: "An unattended scheduling daemon for brokerage accounts",
	Long: `Traderd periodically drives a trading workflow against one or more
brokerage accounts: it syncs balances, executes a trading strategy, and
refreshes asset prices, each on its own cron cadence.

No two instances of the same job ever run concurrently, across processes
included; trade-affecting actions respect the trading-hours window and the
per-order risk limits.

Configuration is environment-driven (optionally via .env files selected by
APP_ENV); run 'traderd config' to inspect the resolved settings.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
