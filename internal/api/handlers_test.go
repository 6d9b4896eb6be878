package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mawsool/cx-insights/backend/internal/insight"
	"github.com/mawsool/cx-insights/backend/internal/types"
)

type fakeProvider struct {
	latest      *types.Snapshot
	alerts      []types.Alert
	lastRefresh time.Time

	fetched  *types.Snapshot
	fetchErr error
	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakeProvider) Latest() *types.Snapshot   { return f.latest }
func (f *fakeProvider) Alerts() []types.Alert     { return f.alerts }
func (f *fakeProvider) LastRefresh() time.Time    { return f.lastRefresh }
func (f *fakeProvider) Fetch(ctx context.Context, start, end time.Time) (*types.Snapshot, error) {
	f.gotStart, f.gotEnd = start, end
	return f.fetched, f.fetchErr
}

type fakeAnalyzer struct {
	analysis string
	err      error
	got      []types.MOSDataPoint
}

func (f *fakeAnalyzer) AnalyzeMOSPerformance(ctx context.Context, data []types.MOSDataPoint) (string, error) {
	f.got = data
	return f.analysis, f.err
}

func floatPtr(v float64) *float64 { return &v }

func testSnapshot() *types.Snapshot {
	return &types.Snapshot{
		Type:    "snapshot",
		QueueID: "q-1",
		History: []types.UnifiedDataPoint{
			{Timestamp: "2024-03-01 09:00", Offered: 10, Answered: 9, MOS: floatPtr(4.4), ConversationsCount: 10},
			{Timestamp: "2024-03-01 09:30", Offered: 5, Answered: 5, ConversationsCount: 5},
			{Timestamp: "2024-03-02 09:00", Offered: 8, Answered: 7, MOS: floatPtr(4.7), ConversationsCount: 8},
		},
	}
}

func newTestHandlers(provider SnapshotProvider, analyzer InsightAnalyzer) *Handlers {
	return NewHandlers(provider, analyzer, zerolog.New(&bytes.Buffer{}))
}

func TestHandleMetricsCached(t *testing.T) {
	provider := &fakeProvider{latest: testSnapshot()}
	h := newTestHandlers(provider, &fakeAnalyzer{})

	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snapshot.QueueID != "q-1" || len(snapshot.History) != 3 {
		t.Errorf("unexpected snapshot %+v", snapshot)
	}
}

func TestHandleMetricsNoDataYet(t *testing.T) {
	h := newTestHandlers(&fakeProvider{}, &fakeAnalyzer{})

	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before first refresh, got %d", rec.Code)
	}
}

func TestHandleMetricsDateRange(t *testing.T) {
	provider := &fakeProvider{fetched: testSnapshot()}
	h := newTestHandlers(provider, &fakeAnalyzer{})

	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics?startDate=2024-03-01&endDate=2024-03-02", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if provider.gotStart.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("unexpected start %v", provider.gotStart)
	}
	if provider.gotEnd.Format("2006-01-02") != "2024-03-02" {
		t.Errorf("unexpected end %v", provider.gotEnd)
	}
}

func TestHandleMetricsBadDates(t *testing.T) {
	h := newTestHandlers(&fakeProvider{fetched: testSnapshot()}, &fakeAnalyzer{})

	for _, query := range []string{
		"?startDate=yesterday&endDate=2024-03-02",
		"?startDate=2024-03-01&endDate=never",
		"?startDate=2024-03-05&endDate=2024-03-01",
	} {
		rec := httptest.NewRecorder()
		h.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestHandleMetricsDailyView(t *testing.T) {
	provider := &fakeProvider{latest: testSnapshot()}
	h := newTestHandlers(provider, &fakeAnalyzer{})

	rec := httptest.NewRecorder()
	h.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics?view=daily", nil))

	var snapshot types.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(snapshot.History) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(snapshot.History))
	}
	if snapshot.History[0].Timestamp != "2024-03-01" {
		t.Errorf("expected daily timestamp 2024-03-01, got %s", snapshot.History[0].Timestamp)
	}
	if snapshot.History[0].Offered != 15 {
		t.Errorf("expected 15 offered on day one, got %d", snapshot.History[0].Offered)
	}

	// The cached snapshot itself must stay at interval granularity
	if len(provider.latest.History) != 3 {
		t.Error("daily view must not mutate the cached snapshot")
	}
}

func TestHandleAlerts(t *testing.T) {
	provider := &fakeProvider{
		alerts:      []types.Alert{{ID: "a-1", Severity: types.SeverityHigh, Value: 3.2}},
		lastRefresh: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h := newTestHandlers(provider, &fakeAnalyzer{})

	rec := httptest.NewRecorder()
	h.HandleAlerts(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

	var body struct {
		Alerts      []types.Alert `json:"alerts"`
		LastRefresh time.Time     `json:"lastRefresh"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Alerts) != 1 || body.Alerts[0].ID != "a-1" {
		t.Errorf("unexpected alerts %+v", body.Alerts)
	}
	if !body.LastRefresh.Equal(provider.lastRefresh) {
		t.Errorf("unexpected lastRefresh %v", body.LastRefresh)
	}
}

func TestHandleInsight(t *testing.T) {
	provider := &fakeProvider{latest: testSnapshot()}
	analyzer := &fakeAnalyzer{analysis: "## Summary\nvoice quality is stable"}
	h := newTestHandlers(provider, analyzer)

	rec := httptest.NewRecorder()
	h.HandleInsight(rec, httptest.NewRequest(http.MethodPost, "/api/insight", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Only intervals with voice samples go to the analyzer
	if len(analyzer.got) != 2 {
		t.Errorf("expected 2 MOS points, got %d", len(analyzer.got))
	}

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["analysis"] == "" {
		t.Error("expected analysis text in response")
	}
}

func TestHandleInsightErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no api key", err: insight.ErrNoAPIKey, want: http.StatusServiceUnavailable},
		{name: "quota", err: insight.ErrQuotaExceeded, want: http.StatusTooManyRequests},
		{name: "auth", err: insight.ErrAuthFailed, want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(&fakeProvider{latest: testSnapshot()}, &fakeAnalyzer{err: tt.err})

			rec := httptest.NewRecorder()
			h.HandleInsight(rec, httptest.NewRequest(http.MethodPost, "/api/insight", nil))

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHandleInsightNoVoiceData(t *testing.T) {
	snapshot := &types.Snapshot{
		History: []types.UnifiedDataPoint{{Timestamp: "2024-03-01 09:00"}},
	}
	h := newTestHandlers(&fakeProvider{latest: snapshot}, &fakeAnalyzer{})

	rec := httptest.NewRecorder()
	h.HandleInsight(rec, httptest.NewRequest(http.MethodPost, "/api/insight", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without voice data, got %d", rec.Code)
	}
}
