package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantrio/traderd/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved daemon configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Schedules:\n")
	fmt.Fprintf(out, "  sync_balance:        %s\n", orDisabled(cfg.CronSyncBalance))
	fmt.Fprintf(out, "  execute_strategy:    %s\n", orDisabled(cfg.CronExecuteStrategy))
	fmt.Fprintf(out, "  update_asset_prices: %s\n", orDisabled(cfg.CronUpdatePrices))
	fmt.Fprintf(out, "  coalesce: %v, misfire grace: %s\n", cfg.Coalesce, cfg.MisfireGrace)
	fmt.Fprintf(out, "Trading hours: %s-%s (everyday: %v)\n", cfg.MarketOpen, cfg.MarketClose, cfg.TradableEveryday)
	fmt.Fprintf(out, "Lock: dir=%s single=%v stale-after=%s\n", cfg.LockDir, cfg.LockSingle, cfg.LockStaleAfter)
	fmt.Fprintf(out, "Broker: %s (practice: %v, app key: %s)\n", cfg.Broker, cfg.BrokerPractice, mask(cfg.BrokerAppKey))
	fmt.Fprintf(out, "Risk: max order %s KRW, slippage %d bps, max retry %d\n",
		cfg.MaxOrderValueKRW.StringFixed(0), cfg.SlippageBPS, cfg.MaxRetry)
	fmt.Fprintf(out, "Accounts: db=%s ttl=%s scope=%s\n", cfg.AccountsDB, cfg.AccountCacheTTL, orAll(cfg.AccountID))
	fmt.Fprintf(out, "Strategy: %s (assets: %s)\n", cfg.Strategy, strings.Join(cfg.Assets, ", "))
	fmt.Fprintf(out, "Journal: %s\n", orDisabled(cfg.JournalDB))
	fmt.Fprintf(out, "Log level: %s\n", cfg.LogLevel)
	return nil
}

func orDisabled(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}

func orAll(s string) string {
	if s == "" {
		return "(all active)"
	}
	return s
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
