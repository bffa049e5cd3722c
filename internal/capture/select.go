package capture

import (
	"errors"
	"strings"

	"cricket-stream-scraper/pkg/types"
)

var ErrNoManifest = errors.New("no m3u8 link found")

// SelectLatest returns the candidate with the greatest timestamp. Ties keep
// the earlier entry.
func SelectLatest(candidates []types.Candidate) (types.Candidate, error) {
	if len(candidates) == 0 {
		return types.Candidate{}, ErrNoManifest
	}
	latest := candidates[0]
	for _, c := range candidates[1:] {
		if c.Timestamp.After(latest.Timestamp) {
			latest = c
		}
	}
	return latest, nil
}

// SelectPreferMaster keeps only playlists and returns the last master
// playlist seen, falling back to the last playlist.
func SelectPreferMaster(candidates []types.Candidate) (types.Candidate, error) {
	var playlists, masters []types.Candidate
	for _, c := range candidates {
		if !IsManifestURL(c.Link) {
			continue
		}
		playlists = append(playlists, c)
		if strings.Contains(strings.ToLower(c.Link), "master") {
			masters = append(masters, c)
		}
	}
	if len(masters) > 0 {
		return masters[len(masters)-1], nil
	}
	if len(playlists) > 0 {
		return playlists[len(playlists)-1], nil
	}
	return types.Candidate{}, ErrNoManifest
}

// Selector picks one candidate out of a capture.
type Selector func([]types.Candidate) (types.Candidate, error)
