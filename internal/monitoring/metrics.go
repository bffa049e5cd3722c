package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Metrics struct {
	ScrapeRuns     int                   `json:"scrape_runs"`
	StreamsTried   int                   `json:"streams_tried"`
	StreamsFound   int                   `json:"streams_found"`
	StreamsFailed  int                   `json:"streams_failed"`
	LastRun        time.Time             `json:"last_run"`
	AverageRunTime time.Duration         `json:"average_run_time"`
	ErrorRate      float64               `json:"error_rate"`
	SlotMetrics    map[string]SlotMetric `json:"slot_metrics"`
}

type SlotMetric struct {
	SourceURL      string        `json:"source_url"`
	Attempts       int           `json:"attempts"`
	Found          int           `json:"found"`
	LastSuccess    time.Time     `json:"last_success"`
	LastLink       string        `json:"last_link,omitempty"`
	AverageRunTime time.Duration `json:"average_run_time"`
	FailureCount   int           `json:"failure_count"`
	// ConsecutiveFailures resets on the next success.
	ConsecutiveFailures int `json:"consecutive_failures"`
}

// Monitor persists scrape metrics to a JSON file. It is safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	metrics     *Metrics
	logger      *logrus.Logger
	metricsFile string
	now         func() time.Time
}

func NewMonitor(logger *logrus.Logger, metricsFile string) *Monitor {
	monitor := &Monitor{
		metrics: &Metrics{
			SlotMetrics: make(map[string]SlotMetric),
		},
		logger:      logger,
		metricsFile: metricsFile,
		now:         time.Now,
	}

	monitor.loadMetrics()
	return monitor
}

// RecordStream records the outcome of one stream. link is empty on failure.
func (m *Monitor) RecordStream(slot, sourceURL, link string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := link != ""
	m.metrics.StreamsTried++
	if found {
		m.metrics.StreamsFound++
	} else {
		m.metrics.StreamsFailed++
	}
	if m.metrics.StreamsTried > 0 {
		m.metrics.ErrorRate = float64(m.metrics.StreamsFailed) / float64(m.metrics.StreamsTried) * 100
	}

	sm := m.metrics.SlotMetrics[slot]
	sm.SourceURL = sourceURL
	sm.Attempts++
	if found {
		sm.Found++
		sm.LastSuccess = m.now()
		sm.LastLink = link
		sm.ConsecutiveFailures = 0
	} else {
		sm.FailureCount++
		sm.ConsecutiveFailures++
	}
	if sm.AverageRunTime == 0 {
		sm.AverageRunTime = duration
	} else {
		sm.AverageRunTime = (sm.AverageRunTime + duration) / 2
	}
	m.metrics.SlotMetrics[slot] = sm

	m.saveMetrics()
}

// RecordRun records a whole run after its streams were recorded.
func (m *Monitor) RecordRun(total, found int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.ScrapeRuns++
	m.metrics.LastRun = m.now()
	if m.metrics.ScrapeRuns > 1 {
		m.metrics.AverageRunTime = (m.metrics.AverageRunTime + duration) / 2
	} else {
		m.metrics.AverageRunTime = duration
	}

	m.saveMetrics()

	m.logger.Infof("Recorded scrape run: %d/%d streams found, %v duration", found, total, duration)
}

// GetMetrics returns a snapshot.
func (m *Monitor) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *m.metrics
	out.SlotMetrics = make(map[string]SlotMetric, len(m.metrics.SlotMetrics))
	for k, v := range m.metrics.SlotMetrics {
		out.SlotMetrics[k] = v
	}
	return out
}

func (m *Monitor) GetHealthStatus() map[string]interface{} {
	metrics := m.GetMetrics()
	status := map[string]interface{}{
		"status":          "healthy",
		"last_run":        metrics.LastRun.Format(time.RFC3339),
		"total_runs":      metrics.ScrapeRuns,
		"streams_found":   metrics.StreamsFound,
		"error_rate":      fmt.Sprintf("%.2f%%", metrics.ErrorRate),
		"average_runtime": metrics.AverageRunTime.String(),
	}

	if m.now().Sub(metrics.LastRun) > 24*time.Hour {
		status["status"] = "warning"
		status["warning"] = "No scrape runs in the last 24 hours"
	}

	if metrics.ErrorRate > 50 {
		status["status"] = "warning"
		status["warning"] = "High error rate detected"
	}

	return status
}

func (m *Monitor) GenerateReport() string {
	metrics := m.GetMetrics()

	var b strings.Builder
	fmt.Fprintf(&b, `
Cricket Stream Scraper Monitoring Report
========================================
Generated: %s

Overall Statistics:
- Total Scrape Runs: %d
- Streams Tried: %d
- Streams Found: %d
- Streams Failed: %d
- Error Rate: %.2f%%
- Average Run Time: %s
- Last Run: %s

Slot Performance:
`,
		m.now().Format("2006-01-02 15:04:05"),
		metrics.ScrapeRuns,
		metrics.StreamsTried,
		metrics.StreamsFound,
		metrics.StreamsFailed,
		metrics.ErrorRate,
		metrics.AverageRunTime,
		metrics.LastRun.Format("2006-01-02 15:04:05"),
	)

	slots := make([]string, 0, len(metrics.SlotMetrics))
	for slot := range metrics.SlotMetrics {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		sm := metrics.SlotMetrics[slot]
		fmt.Fprintf(&b, `
- %s (%s):
  Found: %d/%d
  Last Success: %s
  Average Runtime: %s
  Failures: %d (consecutive %d)
`,
			slot, sm.SourceURL,
			sm.Found, sm.Attempts,
			sm.LastSuccess.Format("2006-01-02 15:04:05"),
			sm.AverageRunTime,
			sm.FailureCount, sm.ConsecutiveFailures,
		)
	}

	return b.String()
}

func (m *Monitor) loadMetrics() {
	if _, err := os.Stat(m.metricsFile); os.IsNotExist(err) {
		m.logger.Info("No existing metrics file found, starting fresh")
		return
	}

	data, err := os.ReadFile(m.metricsFile)
	if err != nil {
		m.logger.Warnf("Failed to read metrics file: %v", err)
		return
	}

	if err := json.Unmarshal(data, m.metrics); err != nil {
		m.logger.Warnf("Failed to parse metrics file: %v", err)
		return
	}
	if m.metrics.SlotMetrics == nil {
		m.metrics.SlotMetrics = make(map[string]SlotMetric)
	}

	m.logger.Info("Loaded existing metrics from file")
}

// saveMetrics must be called with mu held.
func (m *Monitor) saveMetrics() {
	if m.metricsFile == "" {
		return
	}
	data, err := json.MarshalIndent(m.metrics, "", "  ")
	if err != nil {
		m.logger.Errorf("Failed to marshal metrics: %v", err)
		return
	}

	if dir := filepath.Dir(m.metricsFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			m.logger.Errorf("Failed to create metrics directory: %v", err)
			return
		}
	}
	if err := os.WriteFile(m.metricsFile, data, 0644); err != nil {
		m.logger.Errorf("Failed to save metrics: %v", err)
		return
	}
}

// AlertManager handles alerting based on metrics
type AlertManager struct {
	monitor *Monitor
	logger  *logrus.Logger
	// FailureThreshold is the consecutive failures that make a slot alert.
	FailureThreshold int
}

func NewAlertManager(monitor *Monitor, logger *logrus.Logger) *AlertManager {
	return &AlertManager{
		monitor:          monitor,
		logger:           logger,
		FailureThreshold: 3,
	}
}

func (am *AlertManager) CheckAlerts() []string {
	var alerts []string
	metrics := am.monitor.GetMetrics()
	now := am.monitor.now()

	if now.Sub(metrics.LastRun) > 25*time.Hour {
		alerts = append(alerts, "ALERT: Scraper hasn't run in over 24 hours")
	}

	if metrics.ErrorRate > 50 {
		alerts = append(alerts, fmt.Sprintf("ALERT: High error rate: %.2f%%", metrics.ErrorRate))
	}

	if metrics.StreamsFound == 0 {
		alerts = append(alerts, "ALERT: No stream links have been found")
	}

	slots := make([]string, 0, len(metrics.SlotMetrics))
	for slot := range metrics.SlotMetrics {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		sm := metrics.SlotMetrics[slot]
		if am.FailureThreshold > 0 && sm.ConsecutiveFailures >= am.FailureThreshold {
			alerts = append(alerts, fmt.Sprintf("ALERT: %s failed %d runs in a row", slot, sm.ConsecutiveFailures))
		}
	}

	return alerts
}

func (am *AlertManager) SendAlerts(alerts []string) {
	for _, alert := range alerts {
		am.logger.Warn(alert)
	}
}
