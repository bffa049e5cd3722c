package scraper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/internal/config"
	"cricket-stream-scraper/internal/utils"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
)

var ErrUnknownVariant = errors.New("unknown scraper variant")

const (
	VariantBasic      = "basic"
	VariantListener   = "listener"
	VariantCDP        = "cdp"
	VariantAggressive = "aggressive"
	VariantUltimate   = "ultimate"
	VariantSource     = "source"
)

var variantDescriptions = map[string]string{
	VariantBasic:      "selenium + chromedriver, reads .m3u8 responses from the Chrome performance log",
	VariantListener:   "go-rod request listener, clicks the first visible play control in every frame",
	VariantCDP:        "chromedp raw Network.requestWillBeSent listener with a single play script",
	VariantAggressive: "chromedp request/response listeners, interacts with every frame, stops at first manifest",
	VariantUltimate:   "chromedp captures playlists, segments and mpegurl responses, prefers master playlists",
	VariantSource:     "chromedp render, then scans the page source for playlist URLs",
}

// Scraper drives one browser strategy. Scrape launches and tears down its
// own browser for every stream.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, stream types.StreamConfig) (*Result, error)
	Close() error
}

type Result struct {
	Candidates  []types.Candidate   `json:"candidates"`
	Selected    types.Candidate     `json:"selected"`
	Diagnostics capture.Diagnostics `json:"diagnostics"`
	Filter      capture.FilterStats `json:"filter"`
	Duration    time.Duration       `json:"duration"`
}

// Timings are the fixed waits of a variant.
type Timings struct {
	PageTimeout  time.Duration
	InitialWait  time.Duration
	ClickTimeout time.Duration
	ClickPause   time.Duration
	StreamWait   time.Duration
	PollInterval time.Duration
}

// DefaultTimings returns the waits each variant was tuned with.
func DefaultTimings(variant string) Timings {
	switch variant {
	case VariantBasic:
		return Timings{PageTimeout: 60 * time.Second, InitialWait: 10 * time.Second, ClickTimeout: 5 * time.Second, ClickPause: 5 * time.Second}
	case VariantListener:
		return Timings{PageTimeout: 30 * time.Second, InitialWait: 5 * time.Second, ClickTimeout: time.Second, ClickPause: 2 * time.Second, StreamWait: 20 * time.Second}
	case VariantCDP:
		return Timings{PageTimeout: 60 * time.Second, InitialWait: 10 * time.Second, StreamWait: 30 * time.Second}
	case VariantAggressive:
		return Timings{PageTimeout: 60 * time.Second, InitialWait: 10 * time.Second, ClickTimeout: time.Second, ClickPause: 2 * time.Second, StreamWait: 45 * time.Second, PollInterval: 5 * time.Second}
	case VariantUltimate:
		return Timings{PageTimeout: 60 * time.Second, InitialWait: 10 * time.Second, StreamWait: 60 * time.Second, PollInterval: 5 * time.Second}
	default:
		return Timings{PageTimeout: 60 * time.Second, InitialWait: 10 * time.Second, StreamWait: 10 * time.Second}
	}
}

// WithOverrides replaces every non-zero field of cfg (seconds).
func (t Timings) WithOverrides(cfg config.TimingsConfig) Timings {
	set := func(dst *time.Duration, secs int) {
		if secs > 0 {
			*dst = time.Duration(secs) * time.Second
		}
	}
	set(&t.PageTimeout, cfg.PageTimeout)
	set(&t.InitialWait, cfg.InitialWait)
	set(&t.ClickTimeout, cfg.ClickTimeout)
	set(&t.ClickPause, cfg.ClickPause)
	set(&t.StreamWait, cfg.StreamWait)
	set(&t.PollInterval, cfg.PollInterval)
	return t
}

type Options struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Headless       bool
	ChromePath     string
	Timings        Timings
	DriverPath     string
	DriverPort     int
}

// OptionsFromConfig builds Options for variant from the scraper config section.
func OptionsFromConfig(variant string, cfg config.ScraperConfig) Options {
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	driver := cfg.Selenium.DriverPath
	if driver == "" {
		driver = "chromedriver"
	}
	return Options{
		UserAgent:      ua,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Headless:       cfg.IsHeadless(),
		ChromePath:     cfg.ChromePath,
		Timings:        DefaultTimings(variant).WithOverrides(cfg.Timings),
		DriverPath:     driver,
		DriverPort:     cfg.Selenium.Port,
	}
}

// New returns the Scraper implementing variant.
func New(variant string, opts Options, logger *logrus.Logger) (Scraper, error) {
	switch variant {
	case VariantBasic:
		return NewSeleniumScraper(opts, logger), nil
	case VariantListener:
		return NewRodScraper(opts, logger), nil
	case VariantCDP:
		return NewCDPScraper(opts, logger), nil
	case VariantAggressive:
		return NewAggressiveScraper(opts, logger), nil
	case VariantUltimate:
		return NewUltimateScraper(opts, logger), nil
	case VariantSource:
		return NewSourceScraper(opts, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}

// Variants lists the variant names, sorted.
func Variants() []string {
	names := make([]string, 0, len(variantDescriptions))
	for name := range variantDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Describe(variant string) string {
	return variantDescriptions[variant]
}

// BuildRecord turns a selected candidate into the stored document.
func BuildRecord(stream types.StreamConfig, selected types.Candidate, now time.Time) types.StreamRecord {
	headers := selected.Headers
	if headers == nil {
		headers = types.Headers{}
	}
	ms := utils.UnixMillis(now)
	return types.StreamRecord{
		SourceURL:     stream.URL,
		Title:         stream.Title,
		Name:          stream.Name,
		Link:          selected.Link,
		Headers:       headers,
		Status:        types.StatusOK,
		ThumbLink:     stream.ThumbLink,
		CreatedAt:     ms,
		CreatedAtISO:  utils.FormatISO(now),
		LastCheckedAt: ms,
	}
}

// finish applies the selector to the collected candidates and assembles a Result.
func finish(collector *capture.Collector, filter *capture.Filter, selectFn capture.Selector, started time.Time) (*Result, error) {
	all := collector.Candidates()
	kept, stats := capture.BatchFilter(all, filter)
	res := &Result{
		Candidates:  all,
		Diagnostics: collector.Diagnostics(),
		Filter:      stats,
		Duration:    time.Since(started),
	}
	selected, err := selectFn(kept)
	if err != nil {
		return res, err
	}
	res.Selected = selected
	return res, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitForStream waits up to total in interval steps. When stopEarly is set it
// returns as soon as done reports true. It returns the time waited.
func waitForStream(ctx context.Context, total, interval time.Duration, stopEarly bool, done func() bool, logger *logrus.Entry) (time.Duration, error) {
	if interval <= 0 || interval > total {
		interval = total
	}
	var waited time.Duration
	for waited < total {
		if err := sleep(ctx, interval); err != nil {
			return waited, err
		}
		waited += interval
		if done() {
			logger.Infof("Found candidate(s) after %v", waited)
			if stopEarly {
				return waited, nil
			}
			continue
		}
		logger.Debugf("Still waiting... (%v)", waited)
	}
	return waited, nil
}

func logDiagnostics(logger *logrus.Entry, d capture.Diagnostics) {
	logger.WithFields(logrus.Fields{
		"requests":   d.TotalRequests,
		"responses":  d.TotalResponses,
		"candidates": d.Candidates,
		"playlists":  d.Playlists,
		"video_urls": d.VideoURLCount,
		"domains":    d.DomainCount,
	}).Info("Capture summary")
	for _, u := range d.VideoURLs {
		logger.Debugf("  video-related: %s", u)
	}
	for _, h := range d.Domains {
		logger.Debugf("  domain: %s", h)
	}
	if d.SegmentsOnly {
		logger.Warn("Saw .ts segments but no .m3u8 playlist; the playlist may have loaded before listeners attached")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
