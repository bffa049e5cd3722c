package commands

import (
	"fmt"
	"time"

	"cricket-stream-scraper/internal/healthcheck"

	"github.com/spf13/cobra"
)

var checkTimeout time.Duration

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 15*time.Second, "Per-link request timeout")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [--timeout <duration>]",
	Short: "Re-checks every stored link and marks it OK or DEAD.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()

		checker := healthcheck.New(e.firebase, checkTimeout, e.logger)
		if db := e.openDatabase(ctx); db != nil {
			defer db.Close()
			checker.WithStatusUpdater(db)
		}

		report, err := checker.CheckAll(ctx)
		if err != nil {
			return err
		}
		for _, s := range report.Slots {
			if s.Skipped {
				continue
			}
			line := fmt.Sprintf("%-16s %-4s %s", s.Slot, s.Status, s.Link)
			if s.Reason != "" {
				line += " (" + s.Reason + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d alive, %d dead, %d skipped\n", report.Alive, report.Dead, report.Skipped)
		return nil
	},
}
