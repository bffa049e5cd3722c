package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"cricket-stream-scraper/internal/config"
	"cricket-stream-scraper/internal/database"
	"cricket-stream-scraper/internal/firebase"
	"cricket-stream-scraper/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "scraper captures live cricket m3u8 links and publishes them to the realtime database.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "configs/config.yaml", "Configuration file path")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every command needs: configuration, a logger and the database client.
type env struct {
	cfg      *config.Config
	logger   *logrus.Logger
	firebase *firebase.Client
	closeLog func() error
}

func setup() (*env, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	fb := firebase.NewClient(cfg.Firebase.URL, cfg.Firebase.Auth, time.Duration(cfg.Firebase.Timeout)*time.Second, logger)
	logger.Infof("Firebase URL: %s", fb.BaseURL())
	if fb.HasAuth() {
		logger.Info("Firebase Auth: Set")
	} else {
		logger.Info("Firebase Auth: Not set (public database)")
	}

	return &env{cfg: cfg, logger: logger, firebase: fb, closeLog: closeLog}, nil
}

func (e *env) Close() {
	if err := e.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}

// openDatabase returns nil when history is disabled. A history database that
// cannot be reached is logged and skipped.
func (e *env) openDatabase(ctx context.Context) *database.DB {
	if !e.cfg.Database.Enabled {
		return nil
	}
	db, err := database.NewConnection(ctx, &e.cfg.Database, e.logger)
	if err != nil {
		e.logger.Warnf("History database unavailable, continuing without it: %v", err)
		return nil
	}
	if err := db.RunMigrations(ctx); err != nil {
		e.logger.Warnf("Failed to run migrations, continuing without history: %v", err)
		db.Close()
		return nil
	}
	return db
}
