package scraper

import (
	"context"
	"fmt"
	"net"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	slog "github.com/tebeka/selenium/log"
)

// SeleniumScraper drives Chrome through chromedriver and reads playlist
// responses back out of the performance log.
type SeleniumScraper struct {
	opts   Options
	logger *logrus.Logger
}

func NewSeleniumScraper(opts Options, logger *logrus.Logger) *SeleniumScraper {
	return &SeleniumScraper{opts: opts, logger: logger}
}

func (s *SeleniumScraper) Name() string { return VariantBasic }

func (s *SeleniumScraper) Close() error { return nil }

func (s *SeleniumScraper) capabilities() selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": "chrome"}

	args := []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		"--disable-blink-features=AutomationControlled",
		"--autoplay-policy=no-user-gesture-required",
		fmt.Sprintf("--user-agent=%s", s.opts.UserAgent),
	}
	if s.opts.Headless {
		args = append(args, "--headless=new")
	}
	if s.opts.ViewportWidth > 0 && s.opts.ViewportHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", s.opts.ViewportWidth, s.opts.ViewportHeight))
	}
	caps.AddChrome(chrome.Capabilities{
		Path: s.opts.ChromePath,
		Args: args,
	})

	caps.SetLogLevel(slog.Performance, slog.All)
	// chromedriver 75+ only reads the prefixed key
	caps["goog:loggingPrefs"] = map[string]string{string(slog.Performance): string(slog.All)}
	return caps
}

func (s *SeleniumScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*Result, error) {
	started := time.Now()
	log := s.logger.WithFields(logrus.Fields{"variant": s.Name(), "url": stream.URL})

	port := s.opts.DriverPort
	if port == 0 {
		p, err := freePort()
		if err != nil {
			return nil, fmt.Errorf("failed to pick a chromedriver port: %w", err)
		}
		port = p
	}

	selenium.SetDebug(false)
	service, err := selenium.NewChromeDriverService(s.opts.DriverPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start ChromeDriver service: %w", err)
	}
	defer service.Stop()

	driver, err := selenium.NewRemote(s.capabilities(), fmt.Sprintf("http://localhost:%d/wd/hub", port))
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer driver.Quit()

	if err := driver.SetPageLoadTimeout(s.opts.Timings.PageTimeout); err != nil {
		log.Warnf("Failed to set page load timeout: %v", err)
	}

	log.Info("Loading page...")
	if err := driver.Get(stream.URL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", stream.URL, err)
	}
	if err := sleep(ctx, s.opts.Timings.InitialWait); err != nil {
		return nil, err
	}

	if s.clickPlay(driver, log) {
		if err := sleep(ctx, s.opts.Timings.ClickPause); err != nil {
			return nil, err
		}
	}

	messages, err := driver.Log(slog.Performance)
	if err != nil {
		return nil, fmt.Errorf("failed to read performance log: %w", err)
	}
	entries := make([]PerfEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, PerfEntry{Timestamp: m.Timestamp, Message: m.Message})
	}
	log.Debugf("Read %d performance log entries", len(entries))

	collector := capture.NewCollector()
	ParsePerfLog(entries, collector)

	return finish(collector, &capture.Filter{PlaylistsOnly: true}, capture.SelectLatest, started)
}

// clickPlay waits up to ClickTimeout for a clickable play control and clicks it.
func (s *SeleniumScraper) clickPlay(driver selenium.WebDriver, log *logrus.Entry) bool {
	var button selenium.WebElement
	err := driver.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(selenium.ByCSSSelector, basicPlaySelector)
		if err != nil {
			return false, nil
		}
		displayed, _ := el.IsDisplayed()
		enabled, _ := el.IsEnabled()
		if !displayed || !enabled {
			return false, nil
		}
		button = el
		return true, nil
	}, s.opts.Timings.ClickTimeout)
	if err != nil || button == nil {
		log.Debug("No play button found")
		return false
	}
	if err := button.Click(); err != nil {
		log.Debugf("Failed to click play button: %v", err)
		return false
	}
	log.Info("Clicked play button")
	return true
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
