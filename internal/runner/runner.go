package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cricket-stream-scraper/internal/database/models"
	"cricket-stream-scraper/internal/monitoring"
	"cricket-stream-scraper/internal/scraper"
	"cricket-stream-scraper/pkg/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Uploader publishes a record under a slot key.
type Uploader interface {
	Put(ctx context.Context, key string, v interface{}) error
}

// History stores links and runs. It is optional.
type History interface {
	SaveLink(ctx context.Context, link *models.StreamLink) error
	InsertRun(ctx context.Context, run *models.ScrapeRun) error
}

type Options struct {
	Workers     int
	Delay       time.Duration
	ResultsFile string
}

type Runner struct {
	scraper  scraper.Scraper
	uploader Uploader
	history  History
	monitor  *monitoring.Monitor
	logger   *logrus.Logger
	opts     Options
	now      func() time.Time
}

// StreamResult is one stream's outcome, in input order.
type StreamResult struct {
	Index    int                 `json:"index"`
	Slot     string              `json:"slot"`
	Stream   types.StreamConfig  `json:"stream"`
	Record   *types.StreamRecord `json:"record,omitempty"`
	Uploaded bool                `json:"uploaded"`
	Error    string              `json:"error,omitempty"`
	Duration time.Duration       `json:"duration"`
}

type Summary struct {
	RunID      string               `json:"run_id"`
	Variant    string               `json:"variant"`
	Total      int                  `json:"total"`
	Found      int                  `json:"found"`
	Uploaded   int                  `json:"uploaded"`
	Results    []types.StreamRecord `json:"results"`
	Streams    []StreamResult       `json:"streams"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

func New(s scraper.Scraper, uploader Uploader, logger *logrus.Logger, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	return &Runner{
		scraper:  s,
		uploader: uploader,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

func (r *Runner) WithHistory(h History) *Runner {
	r.history = h
	return r
}

func (r *Runner) WithMonitor(m *monitoring.Monitor) *Runner {
	r.monitor = m
	return r
}

// Run scrapes every stream, uploads what was found and returns the summary.
// Per-stream failures are logged and never abort the run.
func (r *Runner) Run(ctx context.Context, streams []types.StreamConfig) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Variant:   r.scraper.Name(),
		Total:     len(streams),
		StartedAt: r.now(),
	}
	log := r.logger.WithFields(logrus.Fields{"run": summary.RunID, "variant": summary.Variant})
	log.Infof("Scraping %d stream(s) with %d worker(s)", len(streams), r.opts.Workers)

	// with several workers, starts are also spaced by Delay
	limit := rate.Inf
	if r.opts.Delay > 0 {
		limit = rate.Every(r.opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]StreamResult, len(streams))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	var waitErr error
	for i, stream := range streams {
		if err := limiter.Wait(gctx); err != nil {
			waitErr = err
			break
		}
		i, stream := i, stream
		last := i == len(streams)-1
		g.Go(func() error {
			res := r.scrapeOne(gctx, i, len(streams), stream, summary.RunID)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			// the worker slot stays taken until the pause is over
			if !last {
				r.pause(gctx)
			}
			return nil
		})
	}
	g.Wait()

	summary.FinishedAt = r.now()
	for _, res := range results {
		if res.Stream.URL == "" {
			continue
		}
		summary.Streams = append(summary.Streams, res)
		if res.Record != nil {
			summary.Found++
			summary.Results = append(summary.Results, *res.Record)
		}
		if res.Uploaded {
			summary.Uploaded++
		}
	}

	if summary.Found > 0 && r.opts.ResultsFile != "" {
		if err := WriteResults(r.opts.ResultsFile, summary.Results); err != nil {
			log.Errorf("Failed to write results: %v", err)
		} else {
			log.Infof("Results saved to %s", r.opts.ResultsFile)
		}
	}

	if r.monitor != nil {
		r.monitor.RecordRun(summary.Total, summary.Found, summary.FinishedAt.Sub(summary.StartedAt))
	}
	if r.history != nil {
		if err := r.history.InsertRun(ctx, summary.run()); err != nil {
			log.Warnf("Failed to record run history: %v", err)
		}
	}

	if waitErr != nil {
		return summary, fmt.Errorf("run interrupted: %w", waitErr)
	}
	return summary, nil
}

// pause waits Delay after a stream before its worker takes the next one.
func (r *Runner) pause(ctx context.Context) {
	if r.opts.Delay <= 0 {
		return
	}
	r.logger.Debugf("Waiting %v before next stream", r.opts.Delay)
	t := time.NewTimer(r.opts.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *Runner) scrapeOne(ctx context.Context, index, total int, stream types.StreamConfig, runID string) StreamResult {
	slot := types.SlotFor(stream, index)
	log := r.logger.WithFields(logrus.Fields{"stream": stream.Name, "slot": slot})
	log.Infof("[%d/%d] Scraping %s", index+1, total, stream.URL)

	res := StreamResult{Index: index, Slot: slot, Stream: stream}
	started := time.Now()
	defer func() {
		if r.monitor != nil {
			link := ""
			if res.Record != nil {
				link = res.Record.Link
			}
			r.monitor.RecordStream(slot, stream.URL, link, res.Duration)
		}
	}()

	scraped, err := r.scraper.Scrape(ctx, stream)
	res.Duration = time.Since(started)
	if err != nil {
		log.Warnf("No m3u8 link found: %v", err)
		res.Error = err.Error()
		return res
	}

	rec := scraper.BuildRecord(stream, scraped.Selected, r.now())
	res.Record = &rec
	log.WithField("headers", rec.Headers.Keys()).Infof("Found m3u8: %s", rec.Link)

	if err := r.uploader.Put(ctx, slot, rec); err != nil {
		log.Errorf("Failed to upload to Firebase: %v", err)
		res.Error = err.Error()
	} else {
		res.Uploaded = true
		log.Infof("Uploaded to Firebase: %s", slot)
	}

	if r.history != nil {
		if err := r.history.SaveLink(ctx, models.NewStreamLink(slot, r.scraper.Name(), runID, rec)); err != nil {
			log.Warnf("Failed to save link history: %v", err)
		}
	}
	return res
}

func (s *Summary) run() *models.ScrapeRun {
	run := &models.ScrapeRun{
		ID:         s.RunID,
		Variant:    s.Variant,
		Total:      s.Total,
		Found:      s.Found,
		Uploaded:   s.Uploaded,
		Errors:     models.StringArray{},
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	for _, st := range s.Streams {
		if st.Error != "" {
			run.Errors = append(run.Errors, fmt.Sprintf("%s: %s", st.Slot, st.Error))
		}
	}
	return run
}

// WriteResults writes records as indented JSON.
func WriteResults(path string, records []types.StreamRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
