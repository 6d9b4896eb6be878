// Package aggregator drives the paginated conversation fetch for a date
// range and folds every record into time buckets and the four side tables
// (agents, callers, wrap-ups, branches) in a single pass.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mawsool/cx-insights/backend/internal/classify"
	"github.com/mawsool/cx-insights/backend/internal/metrics"
	"github.com/mawsool/cx-insights/backend/internal/shift"
	"github.com/mawsool/cx-insights/backend/internal/types"
	"github.com/rs/zerolog"
)

const (
	// PageSize is the fixed page size requested from the detail API
	PageSize = 100

	// MaxPages bounds the per-shift page walk against a misbehaving
	// upstream that never reports a short page
	MaxPages = 100
)

// UnknownAgentName is used when the name resolver has no entry for an ID
const UnknownAgentName = "Unknown Agent"

// Pager retrieves one page of conversation detail records for a query
// interval. A non-success upstream response must surface as an error.
type Pager interface {
	FetchConversationPage(ctx context.Context, queueID, interval string, pageNumber int) (records []types.Conversation, isLastPage bool, err error)
}

// NameResolver maps agent user IDs to display names in one batch
type NameResolver interface {
	ResolveNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Aggregator owns all accumulator state for the duration of one Run call.
// Nothing is carried between runs; every run rebuilds from source.
type Aggregator struct {
	pager    Pager
	resolver NameResolver
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an Aggregator
func New(pager Pager, resolver NameResolver, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		pager:    pager,
		resolver: resolver,
		logger:   logger.With().Str("component", "aggregator").Logger(),
		now:      time.Now,
	}
}

// bucket is the mutable accumulator behind one 30-minute slot key
type bucket struct {
	offered         int
	answered        int
	abandoned       int
	slMet           int
	mosSum          float64
	mosCount        int
	handleTimeSumMs int64
	handleTimeCount int
	agents          map[string]struct{}
}

// agentAcc accumulates one agent's outcomes across the whole run
type agentAcc struct {
	userID        string
	answered      int
	missed        int
	handleTimeMs  int64
	firstActivity *time.Time
	lastActivity  *time.Time
}

// runState holds every accumulator for one aggregation run
type runState struct {
	buckets    map[string]*bucket
	agents     map[string]*agentAcc
	agentOrder []string
	callers    *freqTable
	wrapUps    *freqTable
	branches   *freqTable
}

func newRunState() *runState {
	return &runState{
		buckets:  make(map[string]*bucket),
		agents:   make(map[string]*agentAcc),
		callers:  newFreqTable(),
		wrapUps:  newFreqTable(),
		branches: newFreqTable(),
	}
}

// Run aggregates the queue's conversations over the date range (calendar
// days, inclusive) into a Snapshot. A failed page fetch aborts the whole
// run; there is no partial result and no retry here.
func (a *Aggregator) Run(ctx context.Context, queueID string, start, end time.Time) (*types.Snapshot, error) {
	m := metrics.Get()
	runStart := time.Now()
	now := a.now()

	windows := shift.Windows(start, end, now)
	state := newRunState()

	// Pre-seed every slot of the fetched shifts so the series has no gaps
	// for empty intervals. Future shifts stay absent, not zero-filled.
	for _, w := range windows {
		if !w.FetchNeeded {
			continue
		}
		for _, key := range w.BucketKeys() {
			if _, ok := state.buckets[key]; !ok {
				state.buckets[key] = &bucket{agents: make(map[string]struct{})}
			}
		}
	}

	total := 0
	for _, w := range windows {
		if !w.FetchNeeded {
			continue
		}
		n, err := a.fetchWindow(ctx, state, queueID, w, now)
		if err != nil {
			m.RecordRunError()
			return nil, err
		}
		total += n
	}

	snapshot, err := a.finalize(ctx, state, queueID)
	if err != nil {
		m.RecordRunError()
		return nil, err
	}

	m.RecordRun(time.Since(runStart), total)
	a.logger.Info().
		Int("windows", len(windows)).
		Int("conversations", total).
		Int("buckets", len(state.buckets)).
		Dur("took", time.Since(runStart)).
		Msg("aggregation run completed")

	return snapshot, nil
}

// fetchWindow walks the pages of one shift interval in order, folding every
// conversation. Pagination stops at a short page, an explicit last-page
// marker, or the MaxPages ceiling.
func (a *Aggregator) fetchWindow(ctx context.Context, state *runState, queueID string, w shift.Window, now time.Time) (int, error) {
	m := metrics.Get()
	total := 0

	for page := 1; page <= MaxPages; page++ {
		records, isLast, err := a.pager.FetchConversationPage(ctx, queueID, w.Interval, page)
		if err != nil {
			return total, fmt.Errorf("fetch page %d of %s: %w", page, w.Interval, err)
		}
		m.RecordPageFetched(len(records))

		for _, conv := range records {
			state.fold(classify.Classify(conv, now))
		}
		total += len(records)

		if isLast || len(records) < PageSize {
			break
		}
	}

	a.logger.Debug().
		Str("interval", w.Interval).
		Int("conversations", total).
		Msg("window fetched")

	return total, nil
}

// fold merges one classification result into the accumulators.
// Conversations whose slot was never seeded (outside every fetched shift)
// are skipped entirely, side tables included.
func (s *runState) fold(r classify.Result) {
	b, ok := s.buckets[r.BucketKey]
	if !ok {
		return
	}

	b.offered++

	for _, number := range r.Callers {
		s.callers.add(number)
	}
	for _, branch := range r.Branches {
		s.branches.add(branch)
	}
	for _, label := range r.WrapUps {
		s.wrapUps.add(label)
	}
	for _, sample := range r.MOSSamples {
		b.mosSum += sample
		b.mosCount++
	}
	b.handleTimeSumMs += r.HandleTimeMs

	for _, activity := range r.Agents {
		acc, ok := s.agents[activity.UserID]
		if !ok {
			acc = &agentAcc{userID: activity.UserID}
			s.agents[activity.UserID] = acc
			s.agentOrder = append(s.agentOrder, activity.UserID)
		}
		if activity.HasVoice {
			b.agents[activity.UserID] = struct{}{}
		}
		acc.answered += activity.Answered
		acc.missed += activity.Missed
		acc.handleTimeMs += activity.HandleTimeMs
		if activity.FirstActivity != nil &&
			(acc.firstActivity == nil || activity.FirstActivity.Before(*acc.firstActivity)) {
			t := *activity.FirstActivity
			acc.firstActivity = &t
		}
		if activity.LastActivity != nil &&
			(acc.lastActivity == nil || activity.LastActivity.After(*acc.lastActivity)) {
			t := *activity.LastActivity
			acc.lastActivity = &t
		}
	}

	// answered and abandoned are mutually exclusive per conversation
	if r.Answered {
		b.answered++
		b.handleTimeCount++
		if r.SLMet {
			b.slMet++
		}
	} else if r.Abandoned {
		b.abandoned++
	}
}

// finalize converts the accumulators into the ordered, UI-ready collections
func (a *Aggregator) finalize(ctx context.Context, state *runState, queueID string) (*types.Snapshot, error) {
	keys := make([]string, 0, len(state.buckets))
	for key := range state.buckets {
		keys = append(keys, key)
	}
	// Lexical order is chronological order for the fixed key format
	sort.Strings(keys)

	history := make([]types.UnifiedDataPoint, 0, len(keys))
	for _, key := range keys {
		b := state.buckets[key]
		point := types.UnifiedDataPoint{
			Timestamp:          key,
			Offered:            b.offered,
			Answered:           b.answered,
			Abandoned:          b.abandoned,
			AgentsCount:        len(b.agents),
			ConversationsCount: b.offered,
		}
		if b.offered > 0 {
			sl := float64(b.slMet) / float64(b.offered) * 100
			point.SLPercent = &sl
		}
		if b.mosCount > 0 {
			mos := b.mosSum / float64(b.mosCount)
			point.MOS = &mos
		}
		if b.handleTimeCount > 0 {
			aht := float64(b.handleTimeSumMs) / 1000 / float64(b.handleTimeCount)
			point.AHT = &aht
		}
		history = append(history, point)
	}

	names, err := a.resolver.ResolveNames(ctx, state.agentOrder)
	if err != nil {
		return nil, fmt.Errorf("resolve agent names: %w", err)
	}

	agents := make([]types.AgentPerformance, 0, len(state.agentOrder))
	for _, id := range state.agentOrder {
		acc := state.agents[id]
		name, ok := names[id]
		if !ok || name == "" {
			name = UnknownAgentName
		}
		agents = append(agents, types.AgentPerformance{
			UserID:        acc.userID,
			Name:          name,
			Answered:      acc.answered,
			Missed:        acc.missed,
			HandleTimeMs:  acc.handleTimeMs,
			FirstActivity: acc.firstActivity,
			LastActivity:  acc.lastActivity,
		})
	}

	snapshot := &types.Snapshot{
		Type:        "snapshot",
		GeneratedAt: a.now(),
		QueueID:     queueID,
		History:     history,
		Agents:      agents,
		TopCallers:  make([]types.CallerData, 0, state.callers.len()),
		WrapUps:     make([]types.WrapUpData, 0, state.wrapUps.len()),
		Branches:    make([]types.BranchData, 0, state.branches.len()),
	}
	for _, e := range state.callers.entries() {
		snapshot.TopCallers = append(snapshot.TopCallers, types.CallerData{Number: e.label, Count: e.count})
	}
	for _, e := range state.wrapUps.entries() {
		snapshot.WrapUps = append(snapshot.WrapUps, types.WrapUpData{Name: e.label, Count: e.count})
	}
	for _, e := range state.branches.entries() {
		snapshot.Branches = append(snapshot.Branches, types.BranchData{Name: e.label, Count: e.count})
	}

	return snapshot, nil
}
