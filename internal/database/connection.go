package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cricket-stream-scraper/internal/config"
	"cricket-stream-scraper/internal/database/models"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DefaultMigrationsDir is relative to the repository root.
const DefaultMigrationsDir = "internal/database/migrations"

type DB struct {
	conn          *sql.DB
	logger        *logrus.Logger
	migrationsDir string
}

// DSN builds the lib/pq connection string.
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

func NewConnection(ctx context.Context, cfg *config.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	logger.Infof("Connecting to database: host=%s port=%d dbname=%s user=%s", cfg.Host, cfg.Port, cfg.Name, cfg.User)

	conn, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrations := os.Getenv("DB_MIGRATIONS_DIR")
	if migrations == "" {
		migrations = DefaultMigrationsDir
	}

	logger.Info("Database connection established")
	return &DB{
		conn:          conn,
		logger:        logger,
		migrationsDir: migrations,
	}, nil
}

// MigrationFiles returns the .sql files in dir in apply order.
func MigrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info("Running database migrations...")

	migrationFiles, err := MigrationFiles(db.migrationsDir)
	if err != nil {
		return err
	}

	for _, file := range migrationFiles {
		db.logger.Infof("Running migration: %s", file)

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := db.conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	db.logger.Info("Migrations completed successfully")
	return nil
}

// SaveLink upserts the record published under link.Slot.
func (db *DB) SaveLink(ctx context.Context, link *models.StreamLink) error {
	query := `
		INSERT INTO stream_links (
			slot, source_url, title, name, link, headers, status, thumblink,
			created_at_ms, last_checked_ms, variant, run_id, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, '')::uuid, NOW()
		) ON CONFLICT (slot) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			title = EXCLUDED.title,
			name = EXCLUDED.name,
			link = EXCLUDED.link,
			headers = EXCLUDED.headers,
			status = EXCLUDED.status,
			thumblink = EXCLUDED.thumblink,
			created_at_ms = EXCLUDED.created_at_ms,
			last_checked_ms = EXCLUDED.last_checked_ms,
			variant = EXCLUDED.variant,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()
	`

	_, err := db.conn.ExecContext(ctx, query,
		link.Slot, link.SourceURL, link.Title, link.Name, link.Link, link.Headers,
		link.Status, link.ThumbLink, link.CreatedAtMs, link.LastCheckedMs,
		link.Variant, link.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to save link %s: %w", link.Slot, err)
	}
	return nil
}

// UpdateStatus records a health re-check of slot.
func (db *DB) UpdateStatus(ctx context.Context, slot, status string, checkedMs int64) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE stream_links SET status = $2, last_checked_ms = $3, updated_at = NOW() WHERE slot = $1`,
		slot, status, checkedMs)
	if err != nil {
		return fmt.Errorf("failed to update status of %s: %w", slot, err)
	}
	return nil
}

func (db *DB) InsertRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (id, variant, total, found, uploaded, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := db.conn.ExecContext(ctx, query,
		run.ID, run.Variant, run.Total, run.Found, run.Uploaded, run.Errors,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}
