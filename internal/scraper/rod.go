package scraper

import (
	"context"
	"fmt"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
)

// RodScraper listens for playlist requests on a stealth page and clicks the
// first visible play control in every frame.
type RodScraper struct {
	opts   Options
	logger *logrus.Logger
}

func NewRodScraper(opts Options, logger *logrus.Logger) *RodScraper {
	return &RodScraper{opts: opts, logger: logger}
}

func (s *RodScraper) Name() string { return VariantListener }

func (s *RodScraper) Close() error { return nil }

func (s *RodScraper) launcher() *launcher.Launcher {
	l := launcher.New().
		Headless(s.opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-blink-features", "AutomationControlled").
		Set("autoplay-policy", "no-user-gesture-required").
		Set("ignore-certificate-errors").
		Set("user-agent", s.opts.UserAgent)
	if s.opts.ViewportWidth > 0 && s.opts.ViewportHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", s.opts.ViewportWidth, s.opts.ViewportHeight))
	}
	if s.opts.ChromePath != "" {
		l = l.Bin(s.opts.ChromePath)
	}
	return l
}

func (s *RodScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*Result, error) {
	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{"variant": s.Name(), "url": stream.URL})

	l := s.launcher()
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx).NoDefaultDevice()
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	collector := capture.NewCollector()
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("failed to enable network events: %w", err)
	}
	go page.EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		if e.Request == nil {
			return
		}
		url := e.Request.URL
		collector.SeeRequest(url)
		if !capture.IsManifestURL(url) {
			return
		}
		raw := make(map[string]string, len(e.Request.Headers))
		for k, v := range e.Request.Headers {
			raw[k] = v.String()
		}
		collector.Add(types.Candidate{
			Kind:    types.KindRequest,
			Link:    url,
			Headers: capture.PickHeaders(raw),
		})
		log.Infof("Found m3u8 (request): %s", truncate(url, 120))
	})()

	log.Infof("Loading page (%v timeout)...", s.opts.Timings.PageTimeout)
	timed := page.Timeout(s.opts.Timings.PageTimeout)
	wait := timed.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := timed.Navigate(stream.URL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", stream.URL, err)
	}
	wait()
	timed.CancelTimeout()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := sleep(ctx, s.opts.Timings.InitialWait); err != nil {
		return nil, err
	}

	frames := collectFrames(page, log)
	log.Infof("Found %d frame(s)", len(frames))
	for _, frame := range frames {
		if clickFirstVisible(frame, s.opts.Timings.ClickTimeout, log) {
			if err := sleep(ctx, s.opts.Timings.ClickPause); err != nil {
				return nil, err
			}
		}
	}

	log.Infof("Waiting %v for stream to load...", s.opts.Timings.StreamWait)
	if err := sleep(ctx, s.opts.Timings.StreamWait); err != nil {
		return nil, err
	}

	return finish(collector, &capture.Filter{PlaylistsOnly: true}, capture.SelectLatest, started)
}

// collectFrames returns the page and every nested iframe document it can reach.
func collectFrames(page *rod.Page, log *logrus.Entry) []*rod.Page {
	frames := []*rod.Page{page}
	for i := 0; i < len(frames); i++ {
		iframes, err := frames[i].Elements("iframe")
		if err != nil {
			continue
		}
		for _, el := range iframes {
			f, err := el.Frame()
			if err != nil {
				log.Debugf("Skipping iframe: %v", err)
				continue
			}
			frames = append(frames, f)
		}
	}
	return frames
}

// clickFirstVisible clicks the first visible element matching playSelectors.
func clickFirstVisible(frame *rod.Page, timeout time.Duration, log *logrus.Entry) bool {
	f := frame
	if timeout > 0 {
		f = frame.Timeout(timeout)
	}
	for _, sel := range playSelectors {
		has, el, err := f.Has(sel)
		if err != nil || !has {
			continue
		}
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			log.Debugf("Click on %s failed: %v", sel, err)
			continue
		}
		log.Infof("Clicked: %s", sel)
		return true
	}
	return false
}
