// Package classify decomposes one raw conversation detail record into an
// immutable classification result. It builds no accumulator state of its
// own; folding results into buckets and side tables is the aggregator's job.
package classify

import (
	"time"

	"github.com/mawsool/cx-insights/backend/internal/lookup"
	"github.com/mawsool/cx-insights/backend/internal/shift"
	"github.com/mawsool/cx-insights/backend/internal/types"
)

// SLThresholdMs is the answer window for a conversation to count toward
// service level, measured from conversation start to the first interact
// segment.
const SLThresholdMs = 10000

// AgentActivity summarizes one agent participant's part in a conversation
type AgentActivity struct {
	UserID        string
	HasVoice      bool // at least one voice session, counts toward bucket agent presence
	Answered      int  // voice sessions with an interaction segment
	Missed        int  // voice sessions that alerted but never interacted
	HandleTimeMs  int64
	FirstActivity *time.Time
	LastActivity  *time.Time
}

// Result is the classification of a single conversation. One Result is
// produced per record and folded into the accumulators exactly once.
type Result struct {
	BucketKey    string
	Answered     bool
	SLMet        bool
	Abandoned    bool
	Callers      []string  // normalized caller numbers, one per customer session
	Branches     []string  // resolved branch names for mapped DNIS values
	WrapUps      []string  // resolved wrap-up labels, one per coded segment
	MOSSamples   []float64 // positive MOS samples from voice session endpoints
	HandleTimeMs int64     // total agent-engaged duration
	Agents       []AgentActivity
}

// Classify decomposes a conversation record. Open segments are measured up
// to now, matching what the live dashboard shows for in-flight calls.
// Missing participants, sessions or segments are treated as "no signal",
// never as an error.
func Classify(conv types.Conversation, now time.Time) Result {
	r := Result{BucketKey: shift.BucketKey(conv.ConversationStart)}

	for _, p := range conv.Participants {
		switch p.Purpose {
		case types.PurposeCustomer, types.PurposeExternal:
			classifyCustomer(p, &r)
		case types.PurposeAgent, types.PurposeUser:
			if p.UserID != "" {
				r.Agents = append(r.Agents, classifyAgent(conv.ConversationStart, p, now, &r))
			}
		case types.PurposeACD:
			r.Abandoned = true
		}
	}

	// A conversation is either answered or abandoned at the bucket level,
	// never both. Per-agent missed counts are independent of this.
	if r.Answered {
		r.Abandoned = false
	}

	return r
}

// classifyCustomer records caller and branch signals from customer sessions
func classifyCustomer(p types.Participant, r *Result) {
	for _, s := range p.Sessions {
		remote := s.ANI
		if remote == "" {
			remote = s.Remote
		}
		if remote != "" {
			r.Callers = append(r.Callers, lookup.NormalizeAddress(remote))
		}

		if s.MediaType == types.MediaVoice && s.DNIS != "" {
			if branch, ok := lookup.BranchForDNIS(s.DNIS); ok {
				r.Branches = append(r.Branches, branch)
			}
		}
	}
}

// classifyAgent walks an agent participant's voice sessions, collecting MOS
// samples, wrap-ups, handle time and the session-level answer/miss outcome
func classifyAgent(convStart time.Time, p types.Participant, now time.Time, r *Result) AgentActivity {
	activity := AgentActivity{UserID: p.UserID}

	for _, s := range p.Sessions {
		if s.MediaType != types.MediaVoice {
			continue
		}
		activity.HasVoice = true

		for _, stat := range s.MediaEndpointStats {
			v := stat.MOS
			if v == 0 {
				v = stat.MinMOS
			}
			if v > 0 {
				r.MOSSamples = append(r.MOSSamples, v)
			}
		}

		interacted := false
		alerted := false
		for _, seg := range s.Segments {
			segStart := seg.SegmentStart
			segEnd := now
			if seg.SegmentEnd != nil {
				segEnd = *seg.SegmentEnd
			}

			if activity.FirstActivity == nil || segStart.Before(*activity.FirstActivity) {
				t := segStart
				activity.FirstActivity = &t
			}
			if activity.LastActivity == nil || segEnd.After(*activity.LastActivity) {
				t := segEnd
				activity.LastActivity = &t
			}

			if seg.WrapUpCode != "" || seg.WrapUpName != "" {
				r.WrapUps = append(r.WrapUps, lookup.WrapUpLabel(seg.WrapUpCode, seg.WrapUpName))
			}

			switch seg.SegmentType {
			case types.SegmentInteract, types.SegmentTalk, types.SegmentHold, types.SegmentAfterCallWork:
				r.Answered = true
				interacted = true
				dur := segEnd.Sub(segStart).Milliseconds()
				r.HandleTimeMs += dur
				activity.HandleTimeMs += dur
				if seg.SegmentType == types.SegmentInteract &&
					segStart.Sub(convStart).Milliseconds() <= SLThresholdMs {
					r.SLMet = true
				}
			case types.SegmentAlert:
				alerted = true
			}
		}

		if interacted {
			activity.Answered++
		} else if alerted {
			activity.Missed++
		}
	}

	return activity
}
