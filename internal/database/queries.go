package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cricket-stream-scraper/internal/database/models"
)

const linkColumns = `
	id, slot, source_url, title, name, link, headers, status, thumblink,
	created_at_ms, last_checked_ms, variant, COALESCE(run_id::text, ''), updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row rowScanner) (*models.StreamLink, error) {
	link := &models.StreamLink{}
	err := row.Scan(
		&link.ID, &link.Slot, &link.SourceURL, &link.Title, &link.Name, &link.Link,
		&link.Headers, &link.Status, &link.ThumbLink, &link.CreatedAtMs,
		&link.LastCheckedMs, &link.Variant, &link.RunID, &link.UpdatedAt,
	)
	return link, err
}

// GetLinks returns every slot's latest record, optionally only those with status.
func (db *DB) GetLinks(ctx context.Context, status string) ([]*models.StreamLink, error) {
	query := `SELECT ` + linkColumns + ` FROM stream_links`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY slot`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []*models.StreamLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// GetLinkBySlot returns nil without error when slot has no record.
func (db *DB) GetLinkBySlot(ctx context.Context, slot string) (*models.StreamLink, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM stream_links WHERE slot = $1`, slot)
	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link %s: %w", slot, err)
	}
	return link, nil
}

// GetRuns returns the most recent runs first.
func (db *DB) GetRuns(ctx context.Context, limit int) ([]*models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id::text, variant, total, found, uploaded, errors, started_at, finished_at
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ScrapeRun
	for rows.Next() {
		run := &models.ScrapeRun{}
		if err := rows.Scan(&run.ID, &run.Variant, &run.Total, &run.Found, &run.Uploaded,
			&run.Errors, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetStats returns link and run totals for the API.
func (db *DB) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalLinks, okLinks, deadLinks int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'OK'),
		       COUNT(*) FILTER (WHERE status = 'DEAD')
		FROM stream_links`).Scan(&totalLinks, &okLinks, &deadLinks)
	if err != nil {
		return nil, fmt.Errorf("failed to get link counts: %w", err)
	}
	stats["total_links"] = totalLinks
	stats["ok_links"] = okLinks
	stats["dead_links"] = deadLinks

	var totalRuns int
	var found, total sql.NullInt64
	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*), SUM(found), SUM(total) FROM scrape_runs`).
		Scan(&totalRuns, &found, &total)
	if err != nil {
		return nil, fmt.Errorf("failed to get run counts: %w", err)
	}
	stats["total_runs"] = totalRuns
	if total.Valid && total.Int64 > 0 {
		stats["success_rate"] = float64(found.Int64) / float64(total.Int64) * 100
	} else {
		stats["success_rate"] = 0.0
	}

	var lastRun sql.NullTime
	err = db.conn.QueryRowContext(ctx, `SELECT MAX(finished_at) FROM scrape_runs`).Scan(&lastRun)
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	if lastRun.Valid {
		stats["last_run"] = lastRun.Time
	}

	var topVariant sql.NullString
	err = db.conn.QueryRowContext(ctx, `
		SELECT variant FROM scrape_runs
		GROUP BY variant
		ORDER BY SUM(found) DESC
		LIMIT 1`).Scan(&topVariant)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get top variant: %w", err)
	}
	if topVariant.Valid {
		stats["top_variant"] = topVariant.String
	}

	return stats, nil
}
