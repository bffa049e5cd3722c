package healthcheck

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"cricket-stream-scraper/internal/config"
	"cricket-stream-scraper/internal/utils"
	"cricket-stream-scraper/pkg/types"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	slotSuffix     = "serverlink"
	manifestMarker = "#EXTM3U"
	defaultTimeout = 15 * time.Second
)

// Store is the realtime database surface the checker needs.
type Store interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Put(ctx context.Context, key string, v interface{}) error
}

// StatusUpdater mirrors check outcomes into the history store. It is optional.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, slot, status string, checkedAtMs int64) error
}

type SlotResult struct {
	Slot    string `json:"slot"`
	Link    string `json:"link"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

type Report struct {
	Checked int          `json:"checked"`
	Alive   int          `json:"alive"`
	Dead    int          `json:"dead"`
	Skipped int          `json:"skipped"`
	Slots   []SlotResult `json:"slots"`
}

type Checker struct {
	store   Store
	updater StatusUpdater
	http    *resty.Client
	logger  *logrus.Logger
	now     func() time.Time
}

func New(store Store, timeout time.Duration, logger *logrus.Logger) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{
		store: store,
		http: resty.New().
			SetTimeout(timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(3)),
		logger: logger,
		now:    time.Now,
	}
}

func (c *Checker) WithStatusUpdater(u StatusUpdater) *Checker {
	c.updater = u
	return c
}

// CheckAll re-checks every stored slot and writes the verdict back.
func (c *Checker) CheckAll(ctx context.Context) (*Report, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	report := &Report{}
	for _, key := range keys {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		res := c.checkSlot(ctx, key)
		report.Slots = append(report.Slots, res)
		switch {
		case res.Skipped:
			report.Skipped++
		case res.Status == types.StatusOK:
			report.Checked++
			report.Alive++
		default:
			report.Checked++
			report.Dead++
		}
	}

	c.logger.Infof("healthcheck: %d checked, %d alive, %d dead, %d skipped",
		report.Checked, report.Alive, report.Dead, report.Skipped)
	return report, nil
}

func (c *Checker) checkSlot(ctx context.Context, key string) SlotResult {
	log := c.logger.WithField("slot", key)
	if !strings.HasSuffix(key, slotSuffix) {
		return SlotResult{Slot: key, Skipped: true, Reason: "not a slot"}
	}

	var rec types.StreamRecord
	found, err := c.store.Get(ctx, key, &rec)
	if err != nil {
		log.Warnf("Failed to read record: %v", err)
		return SlotResult{Slot: key, Skipped: true, Reason: err.Error()}
	}
	if !found || rec.Link == "" {
		return SlotResult{Slot: key, Skipped: true, Reason: "no link"}
	}

	alive, reason := c.CheckLink(ctx, rec.Link, rec.Headers)
	status := types.StatusDead
	if alive {
		status = types.StatusOK
	}
	log.WithField("status", status).Debugf("Checked %s", rec.Link)

	checkedAt := utils.UnixMillis(c.now())
	rec.Status = status
	rec.LastCheckedAt = checkedAt
	if rec.Headers == nil {
		rec.Headers = types.Headers{}
	}
	if err := c.store.Put(ctx, key, rec); err != nil {
		log.Errorf("Failed to write status back: %v", err)
	}
	if c.updater != nil {
		if err := c.updater.UpdateStatus(ctx, key, status, checkedAt); err != nil {
			log.Warnf("Failed to update history status: %v", err)
		}
	}

	return SlotResult{Slot: key, Link: rec.Link, Status: status, Reason: reason}
}

// CheckLink fetches link with the captured headers. A link is alive when it
// answers 2xx with a playlist body or an mpegurl content type.
func (c *Checker) CheckLink(ctx context.Context, link string, headers types.Headers) (bool, string) {
	req := c.http.R().SetContext(ctx)
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	if _, ok := headers[types.HeaderUserAgent]; !ok {
		req.SetHeader(types.HeaderUserAgent, config.DefaultUserAgent)
	}

	resp, err := req.Get(link)
	if err != nil {
		return false, err.Error()
	}
	if !resp.IsSuccess() {
		return false, fmt.Sprintf("status %d", resp.StatusCode())
	}
	if bytes.HasPrefix(bytes.TrimSpace(resp.Body()), []byte(manifestMarker)) {
		return true, ""
	}
	if strings.Contains(strings.ToLower(resp.Header().Get("Content-Type")), "mpegurl") {
		return true, ""
	}
	return false, "not a playlist"
}
