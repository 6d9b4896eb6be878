// Package shift derives the operating windows and the 30-minute bucket grid
// for a requested date range.
package shift

import "time"

const (
	// StartHourUTC is the hour (UTC) at which the daily operating shift opens
	StartHourUTC = 6

	// Duration is the length of one operating shift
	Duration = 18 * time.Hour

	// BucketSize is the reporting interval granularity
	BucketSize = 30 * time.Minute

	// LocalOffset shifts UTC into the display timezone (Baghdad, UTC+3)
	LocalOffset = 3 * time.Hour

	// MaxWindows bounds the fan-out of one request. Longer ranges are
	// truncated silently rather than rejected.
	MaxWindows = 31

	keyLayout      = "2006-01-02 15:04"
	intervalLayout = "2006-01-02T15:04:05Z"
)

// Window is one daily operating shift. FetchNeeded is false for shifts that
// have not started yet; those are skipped entirely and produce no buckets.
type Window struct {
	StartUTC    time.Time
	EndUTC      time.Time
	Interval    string // "start/end" query interval for the detail API
	FetchNeeded bool
}

// Windows produces one Window per calendar day from start to end inclusive,
// capped at MaxWindows. Dates are interpreted in UTC.
func Windows(start, end, now time.Time) []Window {
	var windows []Window

	y, m, d := start.UTC().Date()
	current := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = end.UTC().Date()
	last := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	for !current.After(last) && len(windows) < MaxWindows {
		shiftStart := current.Add(StartHourUTC * time.Hour)
		shiftEnd := shiftStart.Add(Duration)
		windows = append(windows, Window{
			StartUTC:    shiftStart,
			EndUTC:      shiftEnd,
			Interval:    shiftStart.Format(intervalLayout) + "/" + shiftEnd.Format(intervalLayout),
			FetchNeeded: shiftStart.Before(now),
		})
		current = current.AddDate(0, 0, 1)
	}

	return windows
}

// BucketKey returns the local-time 30-minute slot key for an instant,
// formatted "YYYY-MM-DD HH:MM"
func BucketKey(t time.Time) string {
	local := t.UTC().Add(LocalOffset)
	return local.Truncate(BucketSize).Format(keyLayout)
}

// BucketKeys returns every slot key the window spans, in order
func (w Window) BucketKeys() []string {
	keys := make([]string, 0, int(Duration/BucketSize))
	for slot := w.StartUTC; slot.Before(w.EndUTC); slot = slot.Add(BucketSize) {
		keys = append(keys, BucketKey(slot))
	}
	return keys
}
