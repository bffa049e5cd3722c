package commands

import (
	"fmt"
	"time"

	"cricket-stream-scraper/internal/config"
	"cricket-stream-scraper/internal/monitoring"
	"cricket-stream-scraper/internal/runner"
	"cricket-stream-scraper/internal/scraper"

	"github.com/spf13/cobra"
)

var (
	scrapeVariant string
	scrapeStreams string
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeVariant, "variant", "", "Scraper variant, one of the names printed by the variants command")
	scrapeCmd.Flags().StringVar(&scrapeStreams, "streams", "", "Streams file; overrides scraper.streams_file")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--variant <name>] [--streams <path/to/streams.yaml>]",
	Short: "Scrapes every configured stream and uploads the m3u8 links.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()
		ctx := cmd.Context()
		cfg := e.cfg

		variant := cfg.Scraper.Variant
		if scrapeVariant != "" {
			variant = scrapeVariant
		}
		streamsFile := cfg.Scraper.StreamsFile
		if scrapeStreams != "" {
			streamsFile = scrapeStreams
		}

		streams, err := config.LoadStreams(streamsFile, e.logger.Warnf)
		if err != nil {
			return err
		}
		if len(streams) == 0 {
			return fmt.Errorf("no streams configured")
		}

		s, err := scraper.New(variant, scraper.OptionsFromConfig(variant, cfg.Scraper), e.logger)
		if err != nil {
			return err
		}
		defer s.Close()
		e.logger.Infof("Variant: %s (%s)", s.Name(), scraper.Describe(s.Name()))

		r := runner.New(s, e.firebase, e.logger, runner.Options{
			Workers:     cfg.Scraper.ConcurrentWorkers,
			Delay:       time.Duration(cfg.Scraper.DelayBetweenStreams) * time.Second,
			ResultsFile: cfg.Scraper.ResultsFile,
		}).WithMonitor(monitoring.NewMonitor(e.logger, cfg.Scraper.MetricsFile))

		if db := e.openDatabase(ctx); db != nil {
			defer db.Close()
			r.WithHistory(db)
		}

		summary, err := r.Run(ctx, streams)
		if err != nil {
			e.logger.Warnf("Scrape stopped early: %v", err)
		}
		e.logger.Infof("Scraping completed! Found %d/%d streams, uploaded %d", summary.Found, summary.Total, summary.Uploaded)
		return nil
	},
}
