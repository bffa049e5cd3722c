package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"cricket-stream-scraper/internal/config"
	"cricket-stream-scraper/internal/database"
	"cricket-stream-scraper/internal/monitoring"
	"cricket-stream-scraper/internal/utils"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/config.yaml", "Configuration file path")
		metricsFile = flag.String("metrics", "", "Metrics file path; defaults to scraper.metrics_file")
		report      = flag.Bool("report", false, "Generate and display monitoring report")
		alerts      = flag.Bool("alerts", false, "Check and display alerts")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, closeLog, err := utils.NewLogger(cfg.Logging.Level, "")
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer closeLog()

	path := cfg.Scraper.MetricsFile
	if *metricsFile != "" {
		path = *metricsFile
	}
	monitor := monitoring.NewMonitor(logger, path)

	if *report {
		fmt.Println(monitor.GenerateReport())

		if !cfg.Database.Enabled {
			return
		}
		ctx := context.Background()
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Errorf("Failed to connect to database: %v", err)
			return
		}
		defer db.Close()

		stats, err := db.GetStats(ctx)
		if err != nil {
			logger.Errorf("Failed to get database stats: %v", err)
			return
		}
		fmt.Println("\nDatabase Statistics:")
		fmt.Printf("- Slots: %v\n", stats["total_links"])
		fmt.Printf("- Live (OK): %v\n", stats["ok_links"])
		fmt.Printf("- Dead: %v\n", stats["dead_links"])
		fmt.Printf("- Runs: %v\n", stats["total_runs"])
		fmt.Printf("- Success Rate: %.2f%%\n", stats["success_rate"])
		fmt.Printf("- Last Run: %v\n", stats["last_run"])
		fmt.Printf("- Most Used Variant: %v\n", stats["top_variant"])
		return
	}

	if *alerts {
		alertManager := monitoring.NewAlertManager(monitor, logger)
		active := alertManager.CheckAlerts()

		if len(active) == 0 {
			fmt.Println("✅ No alerts - system is healthy")
		} else {
			fmt.Println("⚠️  Active Alerts:")
			for _, alert := range active {
				fmt.Printf("  - %s\n", alert)
			}
			alertManager.SendAlerts(active)
		}
		return
	}

	health := monitor.GetHealthStatus()
	fmt.Println("Cricket Stream Scraper Status:")
	fmt.Printf("- Status: %s\n", health["status"])
	fmt.Printf("- Last Run: %s\n", health["last_run"])
	fmt.Printf("- Total Runs: %v\n", health["total_runs"])
	fmt.Printf("- Error Rate: %s\n", health["error_rate"])
	fmt.Printf("- Average Runtime: %s\n", health["average_runtime"])

	if warning, exists := health["warning"]; exists {
		fmt.Printf("- Warning: %s\n", warning)
	}
}
