package scraper

import (
	"context"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// SourceScraper renders the page and looks for playlist URLs in its HTML.
// Network requests are still watched so a manifest fetched late is kept too.
type SourceScraper struct {
	opts   Options
	logger *logrus.Logger
}

func NewSourceScraper(opts Options, logger *logrus.Logger) *SourceScraper {
	return &SourceScraper{opts: opts, logger: logger}
}

func (s *SourceScraper) Name() string { return VariantSource }

func (s *SourceScraper) Close() error { return nil }

func (s *SourceScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*Result, error) {
	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{"variant": s.Name(), "url": stream.URL})

	sess, err := startChrome(ctx, s.opts, log)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	collector := capture.NewCollector()
	listenRequests(sess.ctx, collector, capture.IsManifestURL, true, log)

	if err := sess.navigate(stream.URL, s.opts); err != nil {
		return nil, err
	}
	if err := sleep(ctx, s.opts.Timings.InitialWait+s.opts.Timings.StreamWait); err != nil {
		return nil, err
	}

	var html string
	if err := chromedp.Run(sess.ctx, chromedp.Evaluate(pageHTMLScript, &html)); err != nil {
		return nil, err
	}
	addSourceLinks(collector, html, stream.URL, s.opts.UserAgent, log)

	return finish(collector, &capture.Filter{PlaylistsOnly: true, Dedupe: true}, capture.SelectLatest, started)
}

// addSourceLinks records every playlist URL found in html. The page itself
// becomes the Referer and Origin of those candidates.
func addSourceLinks(collector *capture.Collector, html, pageURL, userAgent string, log *logrus.Entry) int {
	links, err := capture.FindInHTML(html, pageURL)
	if err != nil {
		log.Warnf("Failed to parse page source: %v", err)
		return 0
	}
	raw := map[string]string{
		types.HeaderReferer:   pageURL,
		types.HeaderOrigin:    originOf(pageURL),
		types.HeaderUserAgent: userAgent,
	}
	added := 0
	for _, link := range links {
		if collector.AddIfNew(types.Candidate{
			Kind:    types.KindPageSource,
			Link:    link,
			Headers: capture.PickHeaders(raw),
		}) {
			added++
			log.Infof("Found m3u8 (page-source): %s", truncate(link, 120))
		}
	}
	return added
}
