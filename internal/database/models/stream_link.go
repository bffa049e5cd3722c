package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"cricket-stream-scraper/pkg/types"
)

// StreamLink is the latest record published under a slot.
type StreamLink struct {
	ID            int64       `json:"id" db:"id"`
	Slot          string      `json:"slot" db:"slot"`
	SourceURL     string      `json:"source_url" db:"source_url"`
	Title         string      `json:"title" db:"title"`
	Name          string      `json:"name" db:"name"`
	Link          string      `json:"link" db:"link"`
	Headers       HeadersJSON `json:"headers" db:"headers"`
	Status        string      `json:"status" db:"status"`
	ThumbLink     string      `json:"thumblink" db:"thumblink"`
	CreatedAtMs   int64       `json:"createdAt" db:"created_at_ms"`
	LastCheckedMs int64       `json:"lastCheckedAt" db:"last_checked_ms"`
	Variant       string      `json:"variant" db:"variant"`
	RunID         string      `json:"run_id,omitempty" db:"run_id"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

func NewStreamLink(slot, variant, runID string, rec types.StreamRecord) *StreamLink {
	return &StreamLink{
		Slot:          slot,
		SourceURL:     rec.SourceURL,
		Title:         rec.Title,
		Name:          rec.Name,
		Link:          rec.Link,
		Headers:       HeadersJSON(rec.Headers),
		Status:        rec.Status,
		ThumbLink:     rec.ThumbLink,
		CreatedAtMs:   rec.CreatedAt,
		LastCheckedMs: rec.LastCheckedAt,
		Variant:       variant,
		RunID:         runID,
	}
}

// Record converts back to the realtime database document.
func (l *StreamLink) Record() types.StreamRecord {
	return types.StreamRecord{
		SourceURL:     l.SourceURL,
		Title:         l.Title,
		Name:          l.Name,
		Link:          l.Link,
		Headers:       types.Headers(l.Headers),
		Status:        l.Status,
		ThumbLink:     l.ThumbLink,
		CreatedAt:     l.CreatedAtMs,
		LastCheckedAt: l.LastCheckedMs,
	}
}

// ScrapeRun is one invocation of the scraper.
type ScrapeRun struct {
	ID         string      `json:"id" db:"id"`
	Variant    string      `json:"variant" db:"variant"`
	Total      int         `json:"total" db:"total"`
	Found      int         `json:"found" db:"found"`
	Uploaded   int         `json:"uploaded" db:"uploaded"`
	Errors     StringArray `json:"errors" db:"errors"`
	StartedAt  time.Time   `json:"started_at" db:"started_at"`
	FinishedAt time.Time   `json:"finished_at" db:"finished_at"`
}

func (r *ScrapeRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// HeadersJSON stores types.Headers in a JSONB column.
type HeadersJSON map[string]string

func (h HeadersJSON) Value() (driver.Value, error) {
	if len(h) == 0 {
		return "{}", nil
	}
	// lib/pq sends []byte as bytea; jsonb needs text
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (h *HeadersJSON) Scan(value interface{}) error {
	if value == nil {
		*h = HeadersJSON{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	out := HeadersJSON{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*h = out
	return nil
}

// StringArray for handling JSON arrays in PostgreSQL
type StringArray []string

func (sa StringArray) Value() (driver.Value, error) {
	if len(sa) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(sa)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (sa *StringArray) Scan(value interface{}) error {
	if value == nil {
		*sa = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, sa)
	case string:
		return json.Unmarshal([]byte(v), sa)
	default:
		return errors.New("type assertion to []byte failed")
	}
}
