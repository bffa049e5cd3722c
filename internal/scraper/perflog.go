package scraper

import (
	"encoding/json"
	"net/url"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/pkg/types"
)

// PerfEntry is one Chrome performance log line as returned by chromedriver.
type PerfEntry struct {
	Timestamp time.Time
	Message   string
}

type perfMessage struct {
	Message struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	} `json:"message"`
}

type perfRequestWillBeSent struct {
	RequestID string `json:"requestId"`
	Request   struct {
		URL     string                 `json:"url"`
		Headers map[string]interface{} `json:"headers"`
	} `json:"request"`
}

type perfResponseReceived struct {
	RequestID string `json:"requestId"`
	Response  struct {
		URL            string                 `json:"url"`
		MimeType       string                 `json:"mimeType"`
		RequestHeaders map[string]interface{} `json:"requestHeaders"`
	} `json:"response"`
}

// ParsePerfLog extracts .m3u8 responses from performance log entries. Request
// headers come from the response itself, or from the Network.requestWillBeSent
// entry with the same request id. Entries that are not valid JSON are skipped.
func ParsePerfLog(entries []PerfEntry, collector *capture.Collector) {
	sent := make(map[string]map[string]string)
	var responses []struct {
		at time.Time
		ev perfResponseReceived
	}

	for _, entry := range entries {
		var msg perfMessage
		if err := json.Unmarshal([]byte(entry.Message), &msg); err != nil {
			continue
		}
		switch msg.Message.Method {
		case "Network.requestWillBeSent":
			var ev perfRequestWillBeSent
			if json.Unmarshal(msg.Message.Params, &ev) != nil {
				continue
			}
			sent[ev.RequestID] = capture.StringHeaders(ev.Request.Headers)
			collector.SeeRequest(ev.Request.URL)
		case "Network.responseReceived":
			var ev perfResponseReceived
			if json.Unmarshal(msg.Message.Params, &ev) != nil {
				continue
			}
			collector.SeeResponse(ev.Response.URL)
			responses = append(responses, struct {
				at time.Time
				ev perfResponseReceived
			}{entry.Timestamp, ev})
		}
	}

	for _, r := range responses {
		if !capture.IsManifestURL(r.ev.Response.URL) {
			continue
		}
		raw := capture.StringHeaders(r.ev.Response.RequestHeaders)
		if len(raw) == 0 {
			raw = sent[r.ev.RequestID]
		}
		collector.Add(types.Candidate{
			Kind:        types.KindPerfLog,
			Link:        r.ev.Response.URL,
			ContentType: r.ev.Response.MimeType,
			Headers:     capture.PickHeaders(raw),
			Timestamp:   r.at,
		})
	}
}

// originOf returns scheme://host of u, or "" when u has no host.
func originOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
