package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mawsool/cx-insights/backend/internal/types"
	"github.com/rs/zerolog"
)

var (
	testDay = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	testNow = time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
)

// fakePager serves fixed pages regardless of interval
type fakePager struct {
	pages [][]types.Conversation
	calls int
	err   error
}

func (f *fakePager) FetchConversationPage(ctx context.Context, queueID, interval string, pageNumber int) ([]types.Conversation, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	if pageNumber > len(f.pages) {
		return nil, true, nil
	}
	return f.pages[pageNumber-1], pageNumber == len(f.pages), nil
}

// fullPager always returns a full page and never signals the last page
type fullPager struct {
	calls int
}

func (f *fullPager) FetchConversationPage(ctx context.Context, queueID, interval string, pageNumber int) ([]types.Conversation, bool, error) {
	f.calls++
	page := make([]types.Conversation, PageSize)
	for i := range page {
		page[i] = types.Conversation{ConversationStart: testDay.Add(8 * time.Hour)}
	}
	return page, false, nil
}

type fakeResolver struct {
	names map[string]string
	calls [][]string
}

func (f *fakeResolver) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	f.calls = append(f.calls, ids)
	return f.names, nil
}

func newTestAggregator(p Pager, r NameResolver) *Aggregator {
	agg := New(p, r, zerolog.Nop())
	agg.now = func() time.Time { return testNow }
	return agg
}

// answeredConv starts 10:05 local with a 42s interact segment answered 3s in
func answeredConv(caller string) types.Conversation {
	start := testDay.Add(7*time.Hour + 5*time.Minute)
	segStart := start.Add(3 * time.Second)
	segEnd := segStart.Add(42 * time.Second)
	return types.Conversation{
		ConversationStart: start,
		Participants: []types.Participant{
			{
				Purpose:  types.PurposeCustomer,
				Sessions: []types.Session{{MediaType: types.MediaVoice, ANI: caller}},
			},
			{
				Purpose: types.PurposeAgent,
				UserID:  "agent-1",
				Sessions: []types.Session{{
					MediaType:          types.MediaVoice,
					MediaEndpointStats: []types.MediaEndpointStat{{MOS: 4.6}},
					Segments: []types.Segment{
						{SegmentType: types.SegmentInteract, SegmentStart: segStart, SegmentEnd: &segEnd},
					},
				}},
			},
		},
	}
}

func abandonedConv() types.Conversation {
	return types.Conversation{
		ConversationStart: testDay.Add(7*time.Hour + 10*time.Minute),
		Participants: []types.Participant{
			{Purpose: types.PurposeCustomer, Sessions: []types.Session{{MediaType: types.MediaVoice, ANI: "tel:200"}}},
			{Purpose: types.PurposeACD},
		},
	}
}

func findPoint(t *testing.T, history []types.UnifiedDataPoint, timestamp string) types.UnifiedDataPoint {
	t.Helper()
	for _, h := range history {
		if h.Timestamp == timestamp {
			return h
		}
	}
	t.Fatalf("bucket %s not found in history", timestamp)
	return types.UnifiedDataPoint{}
}

func TestRunAnsweredConversation(t *testing.T) {
	pager := &fakePager{pages: [][]types.Conversation{{answeredConv("tel:+9647700112233")}}}
	resolver := &fakeResolver{names: map[string]string{"agent-1": "Zainab K"}}
	agg := newTestAggregator(pager, resolver)

	snap, err := agg.Run(context.Background(), "queue-1", testDay, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One 18-hour shift at 30-minute granularity, fully pre-seeded
	if len(snap.History) != 36 {
		t.Fatalf("expected 36 buckets, got %d", len(snap.History))
	}

	point := findPoint(t, snap.History, "2024-03-01 10:00")
	if point.Offered != 1 || point.Answered != 1 || point.Abandoned != 0 {
		t.Errorf("expected offered=1 answered=1 abandoned=0, got %+v", point)
	}
	if point.SLPercent == nil || *point.SLPercent != 100 {
		t.Errorf("expected slPercent=100, got %v", point.SLPercent)
	}
	if point.MOS == nil || *point.MOS != 4.6 {
		t.Errorf("expected mos=4.6, got %v", point.MOS)
	}
	if point.AHT == nil || *point.AHT != 42.0 {
		t.Errorf("expected aht=42s, got %v", point.AHT)
	}
	if point.AgentsCount != 1 {
		t.Errorf("expected agentsCount=1, got %d", point.AgentsCount)
	}

	// Empty seeded buckets carry zeros and nil rates, never zeroed rates
	empty := findPoint(t, snap.History, "2024-03-01 09:00")
	if empty.Offered != 0 {
		t.Errorf("expected empty bucket, got offered=%d", empty.Offered)
	}
	if empty.MOS != nil || empty.AHT != nil || empty.SLPercent != nil {
		t.Errorf("expected nil rates for empty bucket, got %+v", empty)
	}

	if len(snap.Agents) != 1 {
		t.Fatalf("expected one agent, got %d", len(snap.Agents))
	}
	if snap.Agents[0].Name != "Zainab K" || snap.Agents[0].Answered != 1 {
		t.Errorf("unexpected agent row %+v", snap.Agents[0])
	}
}

func TestRunAbandonedConversation(t *testing.T) {
	pager := &fakePager{pages: [][]types.Conversation{{abandonedConv()}}}
	agg := newTestAggregator(pager, &fakeResolver{})

	snap, err := agg.Run(context.Background(), "queue-1", testDay, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	point := findPoint(t, snap.History, "2024-03-01 10:00")
	if point.Offered != 1 || point.Answered != 0 || point.Abandoned != 1 {
		t.Errorf("expected offered=1 answered=0 abandoned=1, got %+v", point)
	}
}

func TestRunCallerFrequencyRanking(t *testing.T) {
	pager := &fakePager{pages: [][]types.Conversation{{
		answeredConv("tel:+9647700112233"),
		answeredConv("tel:+9647700112233"),
		answeredConv("tel:+9647700999999"),
	}}}
	agg := newTestAggregator(pager, &fakeResolver{})

	snap, err := agg.Run(context.Background(), "queue-1", testDay, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snap.TopCallers) != 2 {
		t.Fatalf("expected 2 caller entries, got %d", len(snap.TopCallers))
	}
	if snap.TopCallers[0].Number != "+9647700112233" || snap.TopCallers[0].Count != 2 {
		t.Errorf("expected repeat caller ranked first with count=2, got %+v", snap.TopCallers[0])
	}
	if snap.TopCallers[1].Count != 1 {
		t.Errorf("expected second caller count=1, got %+v", snap.TopCallers[1])
	}
}

func TestRunIdempotent(t *testing.T) {
	resolver := &fakeResolver{names: map[string]string{"agent-1": "Zainab K"}}
	build := func() *Aggregator {
		pager := &fakePager{pages: [][]types.Conversation{{
			answeredConv("tel:100"), abandonedConv(),
		}}}
		return newTestAggregator(pager, resolver)
	}

	first, err := build().Run(context.Background(), "queue-1", testDay, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := build().Run(context.Background(), "queue-1", testDay, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("expected byte-identical snapshots for identical input")
	}
}

func TestRunPageErrorAbortsRun(t *testing.T) {
	pager := &fakePager{err: errors.New("analytics failed: 502")}
	agg := newTestAggregator(pager, &fakeResolver{})

	snap, err := agg.Run(context.Background(), "queue-1", testDay, testDay)
	if err == nil {
		t.Fatal("expected error from failed page fetch")
	}
	if snap != nil {
		t.Error("expected no partial result")
	}
	if !errors.Is(err, pager.err) {
		t.Errorf("expected upstream error surfaced, got %v", err)
	}
}

func TestRunStopsAtPageCeiling(t *testing.T) {
	pager := &fullPager{}
	agg := newTestAggregator(pager, &fakeResolver{})

	if _, err := agg.Run(context.Background(), "queue-1", testDay, testDay); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pager.calls != MaxPages {
		t.Errorf("expected fetch to stop at %d pages, got %d", MaxPages, pager.calls)
	}
}

func TestRunSkipsConversationsOutsideSeededBuckets(t *testing.T) {
	// 04:00 UTC is before the 06:00 shift start, so its slot was never seeded
	early := answeredConv("tel:300")
	early.ConversationStart = testDay.Add(4 * time.Hour)
	pager := &fakePager{pages: [][]types.Conversation{{early}}}
	agg := newTestAggregator(pager, &fakeResolver{})

	snap, err := agg.Run(context.Background(), "queue-1", testDay, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, h := range snap.History {
		if h.Offered != 0 {
			t.Errorf("expected no bucket to count the out-of-shift conversation, got %+v", h)
		}
	}
	if len(snap.TopCallers) != 0 {
		t.Error("side tables must not count skipped conversations")
	}
}

func TestRunSkipsFutureShifts(t *testing.T) {
	pager := &fakePager{}
	agg := newTestAggregator(pager, &fakeResolver{})

	// Range extends two days past "now": future shifts produce no buckets
	snap, err := agg.Run(context.Background(), "queue-1", testDay, testNow.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// March 1-5 started (now is mid-shift March 5), March 6-7 did not
	if len(snap.History) != 5*36 {
		t.Errorf("expected %d buckets for 5 fetched shifts, got %d", 5*36, len(snap.History))
	}
}

func TestRunResolvesNamesOnce(t *testing.T) {
	pager := &fakePager{pages: [][]types.Conversation{{answeredConv("tel:100")}}}
	resolver := &fakeResolver{}
	agg := newTestAggregator(pager, resolver)

	snap, err := agg.Run(context.Background(), "queue-1", testDay, testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resolver.calls) != 1 {
		t.Fatalf("expected one batch resolve call, got %d", len(resolver.calls))
	}
	if snap.Agents[0].Name != UnknownAgentName {
		t.Errorf("expected placeholder for unresolved agent, got %s", snap.Agents[0].Name)
	}
}
