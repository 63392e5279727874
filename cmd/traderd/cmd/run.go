package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantrio/traderd/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduling daemon",
	Long: `Run the daemon event loop. Jobs with a configured cron expression are
registered and fired on schedule; jobs without one stay disabled. SIGINT or
SIGTERM stops the loop, letting any in-flight job run to completion.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Absent cron expression means the job is never registered.
	for _, reg := range []struct {
		expr string
		job  scheduler.Job
	}{
		{a.cfg.CronSyncBalance, a.syncBalance},
		{a.cfg.CronExecuteStrategy, a.executeStrategy},
		{a.cfg.CronUpdatePrices, a.updatePrices},
	} {
		if reg.expr == "" {
			a.log.Info().Str("job", reg.job.Name()).Msg("no schedule configured, job disabled")
			continue
		}
		if err := a.sched.Add(reg.expr, reg.job); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.sched.Start(ctx)
	return nil
}
