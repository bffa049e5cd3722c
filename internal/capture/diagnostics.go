package capture

import (
	"net/url"
	"strings"

	"cricket-stream-scraper/pkg/types"
)

const diagnosticsSampleSize = 10

var videoHints = []string{".m3u8", ".ts", ".mp4", "video", "stream", "hls", "manifest"}

type Diagnostics struct {
	TotalRequests  int      `json:"total_requests"`
	TotalResponses int      `json:"total_responses"`
	Candidates     int      `json:"candidates"`
	Playlists      int      `json:"playlists"`
	VideoURLs      []string `json:"video_urls"`
	VideoURLCount  int      `json:"video_url_count"`
	Domains        []string `json:"domains"`
	DomainCount    int      `json:"domain_count"`
	// SegmentsOnly means .ts segments were seen but no playlist, which
	// usually means the playlist loaded before listeners were attached.
	SegmentsOnly bool `json:"segments_only"`
}

func BuildDiagnostics(requests, responses []string, candidates []types.Candidate) Diagnostics {
	d := Diagnostics{
		TotalRequests:  len(requests),
		TotalResponses: len(responses),
		Candidates:     len(candidates),
	}

	for _, c := range candidates {
		if IsManifestURL(c.Link) {
			d.Playlists++
		}
	}
	d.SegmentsOnly = d.Candidates > 0 && d.Playlists == 0

	all := append(append([]string(nil), requests...), responses...)
	videos := VideoRelatedURLs(all)
	d.VideoURLCount = len(videos)
	d.VideoURLs = head(videos, diagnosticsSampleSize)

	domains := UniqueDomains(all)
	d.DomainCount = len(domains)
	d.Domains = head(domains, diagnosticsSampleSize)
	return d
}

// VideoRelatedURLs returns the distinct URLs that look like media traffic, in first-seen order.
func VideoRelatedURLs(urls []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			continue
		}
		lower := strings.ToLower(u)
		for _, hint := range videoHints {
			if strings.Contains(lower, hint) {
				out = append(out, u)
				seen[u] = true
				break
			}
		}
	}
	return out
}

// UniqueDomains returns the distinct hosts in first-seen order.
func UniqueDomains(urls []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		out = append(out, u.Host)
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
