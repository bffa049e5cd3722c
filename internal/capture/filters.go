package capture

import (
	"fmt"
	"sort"
	"strings"

	"cricket-stream-scraper/pkg/types"
)

// IsManifestURL reports whether u points at an HLS playlist.
func IsManifestURL(u string) bool {
	return strings.Contains(strings.ToLower(u), ".m3u8")
}

// IsCandidateURL is the looser match used when capturing everything:
// playlists and transport-stream segments.
func IsCandidateURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "m3u8") || strings.Contains(lower, ".ts")
}

func IsHLSContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "mpegurl")
}

// PickHeaders extracts Origin, Referer and User-Agent from raw request
// headers. An exact-case name wins; otherwise names match
// case-insensitively, in sorted key order. Empty values are dropped.
func PickHeaders(raw map[string]string) types.Headers {
	out := types.Headers{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, known := range types.KnownHeaders {
		if v := raw[known]; v != "" {
			out[known] = v
			continue
		}
		for _, k := range keys {
			if v := raw[k]; v != "" && strings.EqualFold(k, known) {
				out[known] = v
				break
			}
		}
	}
	return out
}

// StringHeaders flattens a CDP-style header map.
func StringHeaders(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

// Filter controls which candidates survive BatchFilter.
type Filter struct {
	// PlaylistsOnly drops candidates whose link is not an .m3u8 playlist.
	PlaylistsOnly bool
	// Dedupe keeps only the first candidate per link.
	Dedupe bool
}

type FilterStats struct {
	Total      int `json:"total"`
	Kept       int `json:"kept"`
	NotHLS     int `json:"not_hls"`
	Segments   int `json:"segments"`
	Duplicates int `json:"duplicates"`
}

func (fs FilterStats) String() string {
	return fmt.Sprintf("Total: %d, Kept: %d, NotHLS: %d, Segments: %d, Duplicates: %d",
		fs.Total, fs.Kept, fs.NotHLS, fs.Segments, fs.Duplicates)
}

// ApplyFilter reports whether a single candidate passes the non-stateful checks.
func ApplyFilter(c types.Candidate, filter *Filter) bool {
	hls := IsCandidateURL(c.Link) || IsHLSContentType(c.ContentType)
	if !hls {
		return false
	}
	if filter.PlaylistsOnly && !IsManifestURL(c.Link) {
		return false
	}
	return true
}

// BatchFilter applies filter to candidates in order and counts why each was dropped.
func BatchFilter(candidates []types.Candidate, filter *Filter) ([]types.Candidate, FilterStats) {
	var kept []types.Candidate
	stats := FilterStats{Total: len(candidates)}
	seen := make(map[string]bool)

	for _, c := range candidates {
		if !IsCandidateURL(c.Link) && !IsHLSContentType(c.ContentType) {
			stats.NotHLS++
			continue
		}
		if !ApplyFilter(c, filter) {
			stats.Segments++
			continue
		}
		if filter.Dedupe {
			if seen[c.Link] {
				stats.Duplicates++
				continue
			}
			seen[c.Link] = true
		}
		kept = append(kept, c)
	}

	stats.Kept = len(kept)
	return kept, stats
}
