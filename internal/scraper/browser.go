package scraper

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// chromeSession is one chromedp browser with a single tab.
type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	frames *frameContexts
	logger *logrus.Entry
}

// allocatorOptions are the exec allocator flags shared by every chromedp variant.
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	return allocOpts
}

// startChrome launches the browser and enables the network domain. The
// returned session must be closed.
func startChrome(parent context.Context, opts Options, logger *logrus.Entry) (*chromeSession, error) {
	if opts.ChromePath == "" && !isChromeAvailable() {
		return nil, fmt.Errorf("no chrome or chromium binary found in PATH")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debugf))

	sess := &chromeSession{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		frames: newFrameContexts(),
		logger: logger,
	}
	sess.frames.listen(tabCtx)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		sess.cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return sess, nil
}

func (s *chromeSession) Close() {
	s.cancel()
}

// navigate loads url. A navigation that exceeds timeout is logged and the
// page is used as far as it got.
func (s *chromeSession) navigate(url string, opts Options) error {
	ctx, cancel := context.WithTimeout(s.ctx, opts.Timings.PageTimeout)
	defer cancel()

	err := chromedp.Run(ctx, chromedp.Navigate(url))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && s.ctx.Err() == nil:
		s.logger.Warnf("Page load exceeded %v, continuing with partial page", opts.Timings.PageTimeout)
		return nil
	default:
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
}

// frameCount returns the number of frames in the current page, main frame included.
func (s *chromeSession) frameCount() int {
	var tree *page.FrameTree
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	}))
	if err != nil || tree == nil {
		return 0
	}
	return countFrames(tree)
}

func countFrames(tree *page.FrameTree) int {
	n := 1
	for _, child := range tree.ChildFrames {
		n += countFrames(child)
	}
	return n
}

// evalEverywhere runs script in every known execution context and returns
// each context's result. Contexts that fail (detached frames, closed
// worlds) are skipped.
func (s *chromeSession) evalEverywhere(script string) []frameResult {
	var results []frameResult
	for _, id := range s.frames.ids() {
		var value []byte
		err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			res, exc, err := runtime.Evaluate(script).
				WithContextID(id).
				WithReturnByValue(true).
				WithAwaitPromise(true).
				Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return exc
			}
			if res != nil {
				value = res.Value
			}
			return nil
		}))
		if err != nil {
			s.logger.Debugf("Frame context %d: %v", id, err)
			continue
		}
		results = append(results, frameResult{ContextID: int64(id), Value: value})
	}
	return results
}

type frameResult struct {
	ContextID int64
	Value     []byte
}

// listenRequests feeds Network.requestWillBeSent into the collector. Only
// URLs accepted by match become candidates.
func listenRequests(ctx context.Context, collector *capture.Collector, match func(string) bool, onlyNew bool, logger *logrus.Entry) *requestHeaders {
	headers := newRequestHeaders()
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*network.EventRequestWillBeSent)
		if !ok || e.Request == nil {
			return
		}
		url := e.Request.URL
		raw := capture.StringHeaders(e.Request.Headers)
		headers.store(string(e.RequestID), raw)
		collector.SeeRequest(url)
		if !match(url) {
			return
		}
		cand := types.Candidate{
			Kind:    types.KindRequest,
			Link:    url,
			Headers: capture.PickHeaders(raw),
		}
		if record(collector, cand, onlyNew) {
			logger.Infof("Found m3u8 (request): %s", truncate(url, 120))
		}
	})
	return headers
}

// listenResponses feeds Network.responseReceived into the collector. With
// onlyNew set, links already captured (as a request or an earlier response)
// are skipped.
func listenResponses(ctx context.Context, collector *capture.Collector, headers *requestHeaders, match func(string) bool, byContentType, onlyNew bool, logger *logrus.Entry) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Response == nil {
			return
		}
		url := e.Response.URL
		collector.SeeResponse(url)

		raw := headers.load(string(e.RequestID))
		if raw == nil {
			raw = capture.StringHeaders(e.Response.RequestHeaders)
		}
		for _, cand := range responseCandidates(url, e.Response.MimeType, raw, match, byContentType) {
			if record(collector, cand, onlyNew) {
				logger.Infof("Found m3u8 (%s): %s", cand.Kind, truncate(url, 120))
			}
		}
	})
}

// responseCandidates returns one candidate per rule a response satisfies: its
// URL, and its MIME type when byContentType is set.
func responseCandidates(url, mimeType string, raw map[string]string, match func(string) bool, byContentType bool) []types.Candidate {
	var kinds []string
	if match(url) {
		kinds = append(kinds, types.KindResponse)
	}
	if byContentType && capture.IsHLSContentType(mimeType) {
		kinds = append(kinds, types.KindResponseContentType)
	}
	out := make([]types.Candidate, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, types.Candidate{
			Kind:        kind,
			Link:        url,
			ContentType: mimeType,
			Headers:     capture.PickHeaders(raw),
		})
	}
	return out
}

func record(collector *capture.Collector, cand types.Candidate, onlyNew bool) bool {
	if onlyNew {
		return collector.AddIfNew(cand)
	}
	collector.Add(cand)
	return true
}

// requestHeaders remembers request headers by request id so responses can
// reuse them.
type requestHeaders struct {
	mu   sync.Mutex
	byID map[string]map[string]string
}

func newRequestHeaders() *requestHeaders {
	return &requestHeaders{byID: make(map[string]map[string]string)}
}

func (r *requestHeaders) store(id string, h map[string]string) {
	r.mu.Lock()
	r.byID[id] = h
	r.mu.Unlock()
}

func (r *requestHeaders) load(id string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

// frameContexts tracks live JavaScript execution contexts, one or more per frame.
type frameContexts struct {
	mu    sync.Mutex
	order []runtime.ExecutionContextID
	live  map[runtime.ExecutionContextID]bool
}

func newFrameContexts() *frameContexts {
	return &frameContexts{live: make(map[runtime.ExecutionContextID]bool)}
}

func (f *frameContexts) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventExecutionContextCreated:
			if e.Context != nil {
				f.add(e.Context.ID)
			}
		case *runtime.EventExecutionContextDestroyed:
			f.remove(e.ExecutionContextID)
		case *runtime.EventExecutionContextsCleared:
			f.reset()
		}
	})
}

func (f *frameContexts) add(id runtime.ExecutionContextID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.live[id] {
		return
	}
	f.live[id] = true
	f.order = append(f.order, id)
}

func (f *frameContexts) remove(id runtime.ExecutionContextID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, id)
}

func (f *frameContexts) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = nil
	f.live = make(map[runtime.ExecutionContextID]bool)
}

// ids returns the live contexts in creation order.
func (f *frameContexts) ids() []runtime.ExecutionContextID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []runtime.ExecutionContextID
	for _, id := range f.order {
		if f.live[id] {
			out = append(out, id)
		}
	}
	return out
}

func isChromeAvailable() bool {
	paths := []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"}
	for _, path := range paths {
		if _, err := exec.LookPath(path); err == nil {
			return true
		}
	}
	return false
}
