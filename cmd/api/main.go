package main

import (
	"context"
	"flag"
	"log"

	"cricket-stream-scraper/internal/api"
	"cricket-stream-scraper/internal/config"
	"cricket-stream-scraper/internal/database"
	"cricket-stream-scraper/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		port       = flag.String("port", "8080", "API server port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, closeLog, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer closeLog()

	db, err := database.NewConnection(context.Background(), &cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	server := api.NewServer(db, logger, *port)

	logger.Info("Available endpoints:")
	logger.Info("  GET  /api/links[?status=OK|DEAD|TEST] - Latest link per slot")
	logger.Info("  GET  /api/links/{slot}[?format=record] - One slot")
	logger.Info("  GET  /api/runs[?limit=N] - Recent scrape runs")
	logger.Info("  GET  /api/stats - Scraping statistics")
	logger.Info("  GET  /api/export/csv - Export links to CSV")
	logger.Info("  GET  /api/health - Health check")
	logger.Info("  GET  /dashboard - Web dashboard")

	if err := server.Start(); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
