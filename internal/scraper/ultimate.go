package scraper

import (
	"context"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
)

// UltimateScraper captures playlists, segments and anything served with an
// HLS content type, then prefers a master playlist.
type UltimateScraper struct {
	opts   Options
	logger *logrus.Logger
}

func NewUltimateScraper(opts Options, logger *logrus.Logger) *UltimateScraper {
	return &UltimateScraper{opts: opts, logger: logger}
}

func (s *UltimateScraper) Name() string { return VariantUltimate }

func (s *UltimateScraper) Close() error { return nil }

func (s *UltimateScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*Result, error) {
	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{"variant": s.Name(), "url": stream.URL})

	sess, err := startChrome(ctx, s.opts, log)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	collector := capture.NewCollector()
	// every hit is kept: a re-fetched media playlist must count as the latest
	headers := listenRequests(sess.ctx, collector, capture.IsCandidateURL, false, log)
	listenResponses(sess.ctx, collector, headers, capture.IsCandidateURL, true, false, log)

	log.Infof("Loading page (%v timeout)...", s.opts.Timings.PageTimeout)
	if err := sess.navigate(stream.URL, s.opts); err != nil {
		return nil, err
	}
	if err := sleep(ctx, s.opts.Timings.InitialWait); err != nil {
		return nil, err
	}

	log.Info("Interacting with page...")
	interactWithFrames(sess, frameInteractionScript(0), log)

	log.Infof("Waiting for streams (%v)...", s.opts.Timings.StreamWait)
	if _, err := waitForStream(ctx, s.opts.Timings.StreamWait, s.opts.Timings.PollInterval, false, func() bool { return collector.Len() > 0 }, log); err != nil {
		return nil, err
	}

	res, err := finish(collector, &capture.Filter{}, capture.SelectPreferMaster, started)
	logDiagnostics(log, res.Diagnostics)
	return res, err
}
