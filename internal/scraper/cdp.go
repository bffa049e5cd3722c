package scraper

import (
	"context"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// CDPScraper listens to raw Network.requestWillBeSent events only.
type CDPScraper struct {
	opts   Options
	logger *logrus.Logger
}

func NewCDPScraper(opts Options, logger *logrus.Logger) *CDPScraper {
	return &CDPScraper{opts: opts, logger: logger}
}

func (s *CDPScraper) Name() string { return VariantCDP }

func (s *CDPScraper) Close() error { return nil }

func (s *CDPScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*Result, error) {
	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{"variant": s.Name(), "url": stream.URL})

	sess, err := startChrome(ctx, s.opts, log)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	collector := capture.NewCollector()
	listenRequests(sess.ctx, collector, capture.IsManifestURL, false, log)

	log.Infof("Loading page (%v timeout)...", s.opts.Timings.PageTimeout)
	if err := sess.navigate(stream.URL, s.opts); err != nil {
		return nil, err
	}
	if err := sleep(ctx, s.opts.Timings.InitialWait); err != nil {
		return nil, err
	}

	var played map[string]int
	if err := chromedp.Run(sess.ctx, chromedp.Evaluate(topDocumentPlayScript, &played)); err != nil {
		log.Warnf("Play script failed: %v", err)
	} else {
		log.Infof("Triggered play actions (%d videos, %d clicks)", played["videos"], played["clicked"])
	}

	log.Infof("Waiting %v for m3u8 requests...", s.opts.Timings.StreamWait)
	if err := sleep(ctx, s.opts.Timings.StreamWait); err != nil {
		return nil, err
	}

	return finish(collector, &capture.Filter{PlaylistsOnly: true}, capture.SelectLatest, started)
}
