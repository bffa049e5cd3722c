package capture

import (
	"sync"
	"time"

	"cricket-stream-scraper/pkg/types"
)

// Collector accumulates network observations from browser event callbacks.
// All methods are safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	now        func() time.Time
	candidates []types.Candidate
	requests   []string
	responses  []string
	links      map[string]bool
	onFound    func(types.Candidate)
}

func NewCollector() *Collector {
	return &Collector{
		now:   time.Now,
		links: make(map[string]bool),
	}
}

// OnCandidate registers a callback run (outside the lock) for every accepted candidate.
func (c *Collector) OnCandidate(fn func(types.Candidate)) {
	c.mu.Lock()
	c.onFound = fn
	c.mu.Unlock()
}

func (c *Collector) SeeRequest(url string) {
	c.mu.Lock()
	c.requests = append(c.requests, url)
	c.mu.Unlock()
}

func (c *Collector) SeeResponse(url string) {
	c.mu.Lock()
	c.responses = append(c.responses, url)
	c.mu.Unlock()
}

// Add records a candidate. A zero timestamp is stamped with the current time.
func (c *Collector) Add(cand types.Candidate) {
	c.add(cand, false)
}

// AddIfNew records cand only when no candidate with the same link exists yet.
// It reports whether the candidate was recorded.
func (c *Collector) AddIfNew(cand types.Candidate) bool {
	return c.add(cand, true)
}

func (c *Collector) add(cand types.Candidate, onlyNew bool) bool {
	c.mu.Lock()
	if onlyNew && c.links[cand.Link] {
		c.mu.Unlock()
		return false
	}
	if cand.Timestamp.IsZero() {
		cand.Timestamp = c.now()
	}
	if cand.Headers == nil {
		cand.Headers = types.Headers{}
	}
	c.links[cand.Link] = true
	c.candidates = append(c.candidates, cand)
	fn := c.onFound
	c.mu.Unlock()

	if fn != nil {
		fn(cand)
	}
	return true
}

// Candidates returns a copy of everything recorded so far.
func (c *Collector) Candidates() []types.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Candidate, len(c.candidates))
	copy(out, c.candidates)
	return out
}

// HasManifest reports whether any recorded candidate is an .m3u8 playlist.
func (c *Collector) HasManifest() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cand := range c.candidates {
		if IsManifestURL(cand.Link) {
			return true
		}
	}
	return false
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.candidates)
}

// Diagnostics summarizes the traffic seen.
func (c *Collector) Diagnostics() Diagnostics {
	c.mu.Lock()
	requests := append([]string(nil), c.requests...)
	responses := append([]string(nil), c.responses...)
	candidates := append([]types.Candidate(nil), c.candidates...)
	c.mu.Unlock()

	return BuildDiagnostics(requests, responses, candidates)
}
