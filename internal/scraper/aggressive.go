package scraper

import (
	"context"
	"encoding/json"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
)

// AggressiveScraper interacts with every frame and stops polling as soon as
// a manifest shows up.
type AggressiveScraper struct {
	opts   Options
	logger *logrus.Logger
}

func NewAggressiveScraper(opts Options, logger *logrus.Logger) *AggressiveScraper {
	return &AggressiveScraper{opts: opts, logger: logger}
}

func (s *AggressiveScraper) Name() string { return VariantAggressive }

func (s *AggressiveScraper) Close() error { return nil }

func (s *AggressiveScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*Result, error) {
	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{"variant": s.Name(), "url": stream.URL})

	sess, err := startChrome(ctx, s.opts, log)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	collector := capture.NewCollector()
	headers := listenRequests(sess.ctx, collector, capture.IsManifestURL, false, log)
	listenResponses(sess.ctx, collector, headers, capture.IsManifestURL, false, true, log)

	log.Infof("Loading page (%v timeout)...", s.opts.Timings.PageTimeout)
	if err := sess.navigate(stream.URL, s.opts); err != nil {
		return nil, err
	}
	if err := sleep(ctx, s.opts.Timings.InitialWait); err != nil {
		return nil, err
	}

	interactWithFrames(sess, frameInteractionScript(s.opts.Timings.ClickPause), log)

	log.Infof("Waiting for stream to load (%v)...", s.opts.Timings.StreamWait)
	if _, err := waitForStream(ctx, s.opts.Timings.StreamWait, s.opts.Timings.PollInterval, true, collector.HasManifest, log); err != nil {
		return nil, err
	}

	res, err := finish(collector, &capture.Filter{PlaylistsOnly: true}, capture.SelectLatest, started)
	logDiagnostics(log, res.Diagnostics)
	return res, err
}

type frameInteraction struct {
	Videos  int    `json:"videos"`
	Clicked int    `json:"clicked"`
	URL     string `json:"url"`
}

// interactWithFrames runs script in every execution context. The script
// paces its own clicks.
func interactWithFrames(sess *chromeSession, script string, log *logrus.Entry) {
	log.Infof("Found %d frames", sess.frameCount())
	for i, fr := range sess.evalEverywhere(script) {
		var got frameInteraction
		if err := json.Unmarshal(fr.Value, &got); err != nil {
			continue
		}
		log.Debugf("Frame %d (%s): %d video(s), %d click(s)", i+1, truncate(got.URL, 80), got.Videos, got.Clicked)
	}
}
