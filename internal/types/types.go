package types

import "time"

// UnifiedDataPoint is one row of the time series served to the dashboard.
// MOS, AHT and SLPercent are nil when no sample was observed for the
// interval. Zero is a valid value for all three, so absence is never
// collapsed to 0.
type UnifiedDataPoint struct {
	Timestamp          string   `json:"timestamp"` // "YYYY-MM-DD HH:MM" local time
	Offered            int      `json:"offered"`
	Answered           int      `json:"answered"`
	Abandoned          int      `json:"abandoned"`
	MOS                *float64 `json:"mos"`
	AHT                *float64 `json:"aht"` // seconds
	AgentsCount        int      `json:"agentsCount"`
	SLPercent          *float64 `json:"slPercent"`
	ConversationsCount int      `json:"conversationsCount"`
}

// AgentPerformance holds per-agent outcome counts for one aggregation run
type AgentPerformance struct {
	UserID        string     `json:"userId"`
	Name          string     `json:"name"`
	Answered      int        `json:"answered"`
	Missed        int        `json:"missed"` // alerted sessions with no interaction
	HandleTimeMs  int64      `json:"handleTimeMs"`
	FirstActivity *time.Time `json:"firstActivity"`
	LastActivity  *time.Time `json:"lastActivity"`
}

// CallerData is one entry of the caller frequency table
type CallerData struct {
	Number string `json:"number"`
	Count  int    `json:"count"`
}

// WrapUpData is one entry of the wrap-up frequency table
type WrapUpData struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BranchData is one entry of the branch frequency table
type BranchData struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Snapshot is the complete output of one aggregation run.
// It is rebuilt from source on every run; nothing is merged across runs.
type Snapshot struct {
	Type        string             `json:"type"` // always "snapshot"
	GeneratedAt time.Time          `json:"generatedAt"`
	QueueID     string             `json:"queueId"`
	History     []UnifiedDataPoint `json:"history"`
	Agents      []AgentPerformance `json:"agents"`
	TopCallers  []CallerData       `json:"topCallers"`
	WrapUps     []WrapUpData       `json:"wrapUpData"`
	Branches    []BranchData       `json:"branchData"`
}

// MOSDataPoint is the reduced quality series handed to the insight analyzer
type MOSDataPoint struct {
	Timestamp          string  `json:"timestamp"`
	MOS                float64 `json:"mos"`
	ConversationsCount int     `json:"conversationsCount"`
}

// AlertSeverity represents the severity of a quality alert
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Alert represents a quality threshold violation on the time series
type Alert struct {
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Value     float64       `json:"value"`
	Message   string        `json:"message"`
	Severity  AlertSeverity `json:"severity"`
}
