package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"cricket-stream-scraper/internal/selftest"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(selftestCmd, simulateCmd, sampleCmd)
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Checks read, write and delete access to the realtime database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		report := selftest.New(e.firebase, e.logger).Connectivity(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Test Results: %d/%d passed\n", report.Passed, report.Total)
		if !report.OK() {
			return fmt.Errorf("some tests failed; check FIREBASE_URL and FIREBASE_AUTH")
		}
		return nil
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Uploads two synthetic scraper results without a browser.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		report := selftest.New(e.firebase, e.logger).Simulate(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Results: %d/%d streams saved\n", report.Passed, report.Total)
		if !report.OK() {
			return fmt.Errorf("some saves failed; check database permissions")
		}
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Prints the shape of a stored record.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(selftest.SampleTree(time.Now()), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
