// Package selftest checks the realtime database wiring without a browser.
package selftest

import (
	"context"
	"fmt"
	"time"

	"cricket-stream-scraper/internal/utils"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
)

const TestSlot = "testserverlink"

// Database is the realtime database surface exercised by the checks.
type Database interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Put(ctx context.Context, key string, v interface{}) error
	Delete(ctx context.Context, key string) error
}

type Step struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

type Report struct {
	Steps  []Step `json:"steps"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
}

func (r *Report) OK() bool {
	return r.Total > 0 && r.Passed == r.Total
}

func (r *Report) add(name string, err error) {
	step := Step{Name: name, Passed: err == nil}
	if err != nil {
		step.Error = err.Error()
	}
	r.Steps = append(r.Steps, step)
	r.Total++
	if step.Passed {
		r.Passed++
	}
}

type Runner struct {
	db     Database
	logger *logrus.Logger
	now    func() time.Time
}

func New(db Database, logger *logrus.Logger) *Runner {
	return &Runner{db: db, logger: logger, now: time.Now}
}

// Connectivity reads the root, writes a TEST record, reads it back and
// removes it. Every step runs even when an earlier one fails.
func (r *Runner) Connectivity(ctx context.Context) *Report {
	report := &Report{}

	keys, err := r.db.Keys(ctx)
	if err == nil {
		if len(keys) == 0 {
			r.logger.Info("Database is empty")
		} else {
			r.logger.Infof("Existing keys: %v", keys)
		}
	}
	r.logStep("connect", err)
	report.add("connect", err)

	err = r.db.Put(ctx, TestSlot, TestRecord(r.now()))
	r.logStep("write "+TestSlot, err)
	report.add("write", err)

	var back types.StreamRecord
	found, err := r.db.Get(ctx, TestSlot, &back)
	if err == nil && !found {
		err = fmt.Errorf("%s is empty after write", TestSlot)
	}
	if err == nil {
		r.logger.WithField("link", back.Link).Debug("Read back test record")
	}
	r.logStep("read "+TestSlot, err)
	report.add("read", err)

	err = r.db.Delete(ctx, TestSlot)
	r.logStep("cleanup "+TestSlot, err)
	report.add("cleanup", err)

	r.logger.Infof("Test Results: %d/%d passed", report.Passed, report.Total)
	return report
}

// Simulate uploads two synthetic scraper results.
func (r *Runner) Simulate(ctx context.Context) *Report {
	report := &Report{}
	for _, s := range SimulatedStreams(r.now()) {
		err := r.db.Put(ctx, s.Slot, s.Record)
		if err == nil {
			r.logger.WithField("link", s.Record.Link).Infof("Saved to Firebase: %s", s.Slot)
		} else {
			r.logger.Errorf("Failed to save %s: %v", s.Slot, err)
		}
		report.add(s.Slot, err)
	}
	r.logger.Infof("Results: %d/%d streams saved", report.Passed, report.Total)
	return report
}

func (r *Runner) logStep(name string, err error) {
	if err != nil {
		r.logger.Errorf("%s failed: %v", name, err)
		return
	}
	r.logger.Infof("%s ok", name)
}

type SimulatedStream struct {
	Slot   string
	Record types.StreamRecord
}

var bhalocastHeaders = types.Headers{
	types.HeaderOrigin:    "https://bhalocast.com",
	types.HeaderReferer:   "https://bhalocast.com/",
	types.HeaderUserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
}

func stamp(rec types.StreamRecord, now time.Time) types.StreamRecord {
	ms := utils.UnixMillis(now)
	rec.CreatedAt = ms
	rec.CreatedAtISO = utils.FormatISO(now)
	rec.LastCheckedAt = ms
	return rec
}

func copyHeaders(h types.Headers) types.Headers {
	out := make(types.Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// TestRecord is the record written by Connectivity.
func TestRecord(now time.Time) types.StreamRecord {
	return stamp(types.StreamRecord{
		SourceURL: "https://test.example.com",
		Title:     "Test Stream",
		Name:      "Test",
		Link:      "https://test.example.com/stream.m3u8",
		Headers: types.Headers{
			types.HeaderOrigin:    "https://test.com",
			types.HeaderReferer:   "https://test.com/",
			types.HeaderUserAgent: "Mozilla/5.0 Test",
		},
		Status: types.StatusTest,
	}, now)
}

func SimulatedStreams(now time.Time) []SimulatedStream {
	return []SimulatedStream{
		{
			Slot: "2ndserverlink",
			Record: stamp(types.StreamRecord{
				SourceURL: "https://crichdplayer.com/willow-cricket-extra-live-stream-play-01",
				Title:     "Watch Stream Live Cricket on Willow Tv - CricHD",
				Name:      "Willow Cricket Extra",
				Link:      "https://jan.player0003.com:8099/hls/asportsd.m3u8?md6=test123&expires=1762859505",
				Headers:   copyHeaders(bhalocastHeaders),
				Status:    types.StatusOK,
			}, now),
		},
		{
			Slot: "3rdserverlink",
			Record: stamp(types.StreamRecord{
				SourceURL: "https://crichd.one/stream.php?id=willow",
				Title:     "Sri Lanka Vs Pakistan ODI",
				Name:      "Sri Lanka Vs Pakistan ODI",
				Link:      "https://jan.player0003.com:8099/hls/tenspk.m3u8?md6=test456&expires=1762859629",
				Headers:   copyHeaders(bhalocastHeaders),
				Status:    types.StatusOK,
				ThumbLink: "https://img-s-msn-com.akamaized.net/tenant/amp/entityid/AA1QaGWE.img",
			}, now),
		},
	}
}

// SampleRecord is the canonical shape of a stored record.
func SampleRecord(now time.Time) types.StreamRecord {
	return stamp(types.StreamRecord{
		SourceURL: "https://crichdplayer.com/willow-cricket-extra-live-stream-play-01",
		Title:     "Watch Stream Live Cricket on Willow Tv - CricHD",
		Name:      "Willow Cricket Extra",
		Link:      "https://jan.player0003.com:8099/hls/asportsd.m3u8?md6=test&expires=1762859505",
		Headers: types.Headers{
			types.HeaderOrigin:    "https://bhalocast.com",
			types.HeaderReferer:   "https://bhalocast.com/",
			types.HeaderUserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
		},
		Status: types.StatusOK,
	}, now)
}

// SampleTree is SampleRecord as it sits in the database.
func SampleTree(now time.Time) map[string]types.StreamRecord {
	return map[string]types.StreamRecord{"2ndserverlink": SampleRecord(now)}
}
