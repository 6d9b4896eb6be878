package alerts

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mawsool/cx-insights/backend/internal/types"
)

// Severity boundary below which call quality is considered degraded
// regardless of the configured threshold.
const criticalMOS = 4.0

// CheckMOSAlerts evaluates a finalized time series against the configured
// MOS threshold and returns one alert per breaching interval. Intervals
// without voice samples carry no MOS and are skipped.
func CheckMOSAlerts(history []types.UnifiedDataPoint, threshold float64) []types.Alert {
	var result []types.Alert
	for _, point := range history {
		if point.MOS == nil {
			continue
		}
		mos := *point.MOS
		if mos >= threshold {
			continue
		}

		severity := types.SeverityMedium
		if mos < criticalMOS {
			severity = types.SeverityHigh
		}

		result = append(result, types.Alert{
			ID:        uuid.New().String(),
			Timestamp: point.Timestamp,
			Value:     mos,
			Message:   fmt.Sprintf("MOS %.2f below threshold %.2f", mos, threshold),
			Severity:  severity,
		})
	}
	return result
}
