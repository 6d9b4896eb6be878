package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mawsool/cx-insights/backend/internal/aggregator"
	"github.com/mawsool/cx-insights/backend/internal/insight"
	"github.com/mawsool/cx-insights/backend/internal/types"
)

const dateLayout = "2006-01-02"

// SnapshotProvider serves the cached dashboard state and on-demand fetches
// for explicit date ranges.
type SnapshotProvider interface {
	Latest() *types.Snapshot
	Alerts() []types.Alert
	LastRefresh() time.Time
	Fetch(ctx context.Context, start, end time.Time) (*types.Snapshot, error)
}

// InsightAnalyzer produces a narrative analysis from a MOS time series.
type InsightAnalyzer interface {
	AnalyzeMOSPerformance(ctx context.Context, data []types.MOSDataPoint) (string, error)
}

// Handlers holds the HTTP handlers for the dashboard API
type Handlers struct {
	provider SnapshotProvider
	analyzer InsightAnalyzer
	logger   zerolog.Logger
}

// NewHandlers creates the API handler set
func NewHandlers(provider SnapshotProvider, analyzer InsightAnalyzer, logger zerolog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		analyzer: analyzer,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// HandleMetrics handles GET /api/metrics
//
// Without date parameters it serves the cached snapshot from the last
// refresh. With startDate and endDate (YYYY-MM-DD) it fetches that range
// on demand. view=daily rolls the interval series up to one point per day.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	startParam := r.URL.Query().Get("startDate")
	endParam := r.URL.Query().Get("endDate")

	var snapshot *types.Snapshot
	if startParam == "" && endParam == "" {
		snapshot = h.provider.Latest()
		if snapshot == nil {
			http.Error(w, "no data available yet", http.StatusServiceUnavailable)
			return
		}
	} else {
		start, err := time.Parse(dateLayout, startParam)
		if err != nil {
			http.Error(w, "invalid startDate, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(dateLayout, endParam)
		if err != nil {
			http.Error(w, "invalid endDate, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		if end.Before(start) {
			http.Error(w, "endDate before startDate", http.StatusBadRequest)
			return
		}

		snapshot, err = h.provider.Fetch(r.Context(), start, end)
		if err != nil {
			h.logger.Error().Err(err).Str("start", startParam).Str("end", endParam).Msg("range fetch failed")
			http.Error(w, "upstream fetch failed", http.StatusBadGateway)
			return
		}
	}

	if r.URL.Query().Get("view") == "daily" {
		daily := *snapshot
		daily.History = aggregator.DailyRollup(snapshot.History)
		snapshot = &daily
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// HandleAlerts handles GET /api/alerts
func (h *Handlers) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":      h.provider.Alerts(),
		"lastRefresh": h.provider.LastRefresh(),
	})
}

// HandleInsight handles POST /api/insight
func (h *Handlers) HandleInsight(w http.ResponseWriter, r *http.Request) {
	snapshot := h.provider.Latest()
	if snapshot == nil {
		http.Error(w, "no data available yet", http.StatusServiceUnavailable)
		return
	}

	series := mosSeries(snapshot.History)
	if len(series) == 0 {
		http.Error(w, "no voice quality data to analyze", http.StatusUnprocessableEntity)
		return
	}

	analysis, err := h.analyzer.AnalyzeMOSPerformance(r.Context(), series)
	if err != nil {
		switch {
		case errors.Is(err, insight.ErrNoAPIKey):
			http.Error(w, "insight analysis not configured", http.StatusServiceUnavailable)
		case errors.Is(err, insight.ErrQuotaExceeded):
			http.Error(w, "analysis quota exceeded, try again later", http.StatusTooManyRequests)
		case errors.Is(err, insight.ErrAuthFailed):
			http.Error(w, "analysis provider rejected credentials", http.StatusBadGateway)
		default:
			h.logger.Error().Err(err).Msg("insight analysis failed")
			http.Error(w, "analysis failed", http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

// HandleHealth handles GET /health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mosSeries reduces the interval history to the points carrying a MOS value
func mosSeries(history []types.UnifiedDataPoint) []types.MOSDataPoint {
	var series []types.MOSDataPoint
	for _, point := range history {
		if point.MOS == nil {
			continue
		}
		series = append(series, types.MOSDataPoint{
			Timestamp:          point.Timestamp,
			MOS:                *point.MOS,
			ConversationsCount: point.ConversationsCount,
		})
	}
	return series
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
