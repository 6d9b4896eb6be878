// Package metrics holds process-wide operational counters exposed on the
// /metrics endpoint in Prometheus text format.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Aggregation metrics
	RunsTotal                   int64
	RunErrorsTotal              int64
	PagesFetchedTotal           int64
	ConversationsProcessedTotal int64
	lastRunDuration             time.Duration
	lastRunConversations        int64

	// Upstream API metrics
	APIRequestsTotal int64
	APIErrorsTotal   int64
	TokenRefreshes   int64

	// Insight metrics
	InsightRequestsTotal int64
	InsightErrorsTotal   int64

	// HTTP metrics
	httpRequestsTotal map[string]map[int]int64 // endpoint -> status -> count

	startTime time.Time
}

// Global metrics instance
var (
	instance *Metrics
	once     sync.Once
)

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			httpRequestsTotal: make(map[string]map[int]int64),
			startTime:         time.Now(),
		}
	})
	return instance
}

// RecordRun records a completed aggregation run
func (m *Metrics) RecordRun(duration time.Duration, conversations int) {
	m.mu.Lock()
	m.RunsTotal++
	m.lastRunDuration = duration
	m.lastRunConversations = int64(conversations)
	m.ConversationsProcessedTotal += int64(conversations)
	m.mu.Unlock()
}

// RecordRunError increments the failed-run counter
func (m *Metrics) RecordRunError() {
	m.mu.Lock()
	m.RunErrorsTotal++
	m.mu.Unlock()
}

// RecordPageFetched records one fetched detail page
func (m *Metrics) RecordPageFetched(records int) {
	m.mu.Lock()
	m.PagesFetchedTotal++
	m.mu.Unlock()
}

// RecordAPIRequest increments the upstream request counter
func (m *Metrics) RecordAPIRequest() {
	m.mu.Lock()
	m.APIRequestsTotal++
	m.mu.Unlock()
}

// RecordAPIError increments the upstream error counter
func (m *Metrics) RecordAPIError() {
	m.mu.Lock()
	m.APIErrorsTotal++
	m.mu.Unlock()
}

// RecordTokenRefresh increments the OAuth token refresh counter
func (m *Metrics) RecordTokenRefresh() {
	m.mu.Lock()
	m.TokenRefreshes++
	m.mu.Unlock()
}

// RecordInsightRequest records an insight generation attempt
func (m *Metrics) RecordInsightRequest(failed bool) {
	m.mu.Lock()
	m.InsightRequestsTotal++
	if failed {
		m.InsightErrorsTotal++
	}
	m.mu.Unlock()
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		write("cxi_uptime_seconds", time.Since(m.startTime).Seconds())

		// Aggregation metrics
		write("cxi_runs_total", m.RunsTotal)
		write("cxi_run_errors_total", m.RunErrorsTotal)
		write("cxi_pages_fetched_total", m.PagesFetchedTotal)
		write("cxi_conversations_processed_total", m.ConversationsProcessedTotal)
		write("cxi_last_run_duration_seconds", m.lastRunDuration.Seconds())
		write("cxi_last_run_conversations", m.lastRunConversations)

		// Upstream API metrics
		write("cxi_api_requests_total", m.APIRequestsTotal)
		write("cxi_api_errors_total", m.APIErrorsTotal)
		write("cxi_token_refreshes_total", m.TokenRefreshes)

		// Insight metrics
		write("cxi_insight_requests_total", m.InsightRequestsTotal)
		write("cxi_insight_errors_total", m.InsightErrorsTotal)

		// HTTP requests by endpoint and status
		for endpoint, statuses := range m.httpRequestsTotal {
			for status, count := range statuses {
				write("cxi_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
