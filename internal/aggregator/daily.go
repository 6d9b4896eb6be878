package aggregator

import (
	"sort"
	"strings"

	"github.com/mawsool/cx-insights/backend/internal/types"
)

// dayAcc accumulates one calendar day of interval buckets
type dayAcc struct {
	offered   int
	answered  int
	abandoned int
	agentsMax int
	mosSum    float64 // Σ mos_i * offered_i over buckets with a MOS
	mosWeight int
	ahtSum    float64 // Σ aht_i * answered_i over buckets with an AHT
	ahtWeight int
	slMet     float64 // answered-in-SL count recovered from slPercent
}

// DailyRollup folds 30-minute interval points belonging to the same local
// calendar day into one point per day. Rates are re-weighted by their
// sample counts (MOS by offered, AHT by answered) rather than averaging the
// interval-level rates, so the daily figures match a direct aggregation.
func DailyRollup(history []types.UnifiedDataPoint) []types.UnifiedDataPoint {
	days := make(map[string]*dayAcc)

	for _, h := range history {
		date, _, found := strings.Cut(h.Timestamp, " ")
		if !found {
			date = h.Timestamp
		}
		d, ok := days[date]
		if !ok {
			d = &dayAcc{}
			days[date] = d
		}

		d.offered += h.Offered
		d.answered += h.Answered
		d.abandoned += h.Abandoned
		if h.AgentsCount > d.agentsMax {
			d.agentsMax = h.AgentsCount
		}
		if h.MOS != nil {
			d.mosSum += *h.MOS * float64(h.Offered)
			d.mosWeight += h.Offered
		}
		if h.AHT != nil {
			d.ahtSum += *h.AHT * float64(h.Answered)
			d.ahtWeight += h.Answered
		}
		if h.SLPercent != nil {
			d.slMet += *h.SLPercent * float64(h.Offered) / 100
		}
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := make([]types.UnifiedDataPoint, 0, len(dates))
	for _, date := range dates {
		d := days[date]
		point := types.UnifiedDataPoint{
			Timestamp:          date,
			Offered:            d.offered,
			Answered:           d.answered,
			Abandoned:          d.abandoned,
			AgentsCount:        d.agentsMax,
			ConversationsCount: d.offered,
		}
		if d.mosWeight > 0 {
			mos := d.mosSum / float64(d.mosWeight)
			point.MOS = &mos
		}
		if d.ahtWeight > 0 {
			aht := d.ahtSum / float64(d.ahtWeight)
			point.AHT = &aht
		}
		if d.offered > 0 {
			sl := d.slMet / float64(d.offered) * 100
			point.SLPercent = &sl
		}
		out = append(out, point)
	}

	return out
}
