package types

import (
	"fmt"
	"time"
)

const (
	StatusOK   = "OK"
	StatusTest = "TEST"
	StatusDead = "DEAD"
)

// Candidate kinds
const (
	KindRequest             = "request"
	KindResponse            = "response"
	KindResponseContentType = "response-content-type"
	KindPerfLog             = "perf-log"
	KindPageSource          = "page-source"
)

const (
	HeaderOrigin    = "Origin"
	HeaderReferer   = "Referer"
	HeaderUserAgent = "User-Agent"
)

// KnownHeaders are the only request headers carried into a StreamRecord.
var KnownHeaders = []string{HeaderOrigin, HeaderReferer, HeaderUserAgent}

// StreamConfig describes one page to scrape.
type StreamConfig struct {
	URL       string `json:"url" yaml:"url"`
	Name      string `json:"name" yaml:"name"`
	Title     string `json:"title" yaml:"title"`
	Slot      string `json:"slot,omitempty" yaml:"slot"`
	ThumbLink string `json:"thumblink,omitempty" yaml:"thumblink"`
}

// Headers holds at most the three KnownHeaders, never with empty values.
type Headers map[string]string

// Keys returns the header names present, in KnownHeaders order.
func (h Headers) Keys() []string {
	var keys []string
	for _, k := range KnownHeaders {
		if _, ok := h[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

type Candidate struct {
	Kind        string    `json:"type"`
	Link        string    `json:"link"`
	ContentType string    `json:"content_type,omitempty"`
	Headers     Headers   `json:"headers"`
	Timestamp   time.Time `json:"timestamp"`
}

// StreamRecord is the document stored under a slot key in the realtime database.
type StreamRecord struct {
	SourceURL     string  `json:"source_url"`
	Title         string  `json:"title"`
	Name          string  `json:"name"`
	Link          string  `json:"link"`
	Headers       Headers `json:"headers"`
	Status        string  `json:"status"`
	ThumbLink     string  `json:"thumblink"`
	CreatedAt     int64   `json:"createdAt"`
	CreatedAtISO  string  `json:"createdAtISO"`
	LastCheckedAt int64   `json:"lastCheckedAt"`
}

// SlotKey returns the legacy slot name for the stream at position index.
// The odd ordinals ("1nd", "2rd") are what the consuming site reads.
func SlotKey(index int) string {
	n := index + 1
	switch {
	case index == 0:
		return fmt.Sprintf("%dndserverlink", n)
	case index == 1:
		return fmt.Sprintf("%drdserverlink", n)
	default:
		return fmt.Sprintf("%dthserverlink", n)
	}
}

// SlotFor prefers the stream's configured slot over the positional one.
func SlotFor(stream StreamConfig, index int) string {
	if stream.Slot != "" {
		return stream.Slot
	}
	return SlotKey(index)
}
