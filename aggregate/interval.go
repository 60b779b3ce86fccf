package aggregate

import (
	"github.com/pbak/homeenergy/telemetry"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

// IntervalUsageAggregator integrates discrete on/off intervals into energy over a window,
// for devices (e.g. lighting) whose real usage is tracked as switch events at a known
// rated power rather than as periodic power samples.
type IntervalUsageAggregator struct{}

// Aggregate sums the window overlap of each interval, in hours, and converts it to kWh at
// the given rated power. An open interval (EndedAt nil) is clipped to the window end.
// Overlapping or duplicated intervals are summed as-is; de-duplicating them is the
// measurement store's problem, not this component's.
//
// The caller is responsible for ensuring ratedPowerW > 0 before asking for an
// interval-based aggregation.
func (IntervalUsageAggregator) Aggregate(intervals []telemetry.UsageInterval, ratedPowerW float64, window timeutils.Period) float64 {
	totalHours := 0.0
	for _, interval := range intervals {
		end := window.End
		if interval.EndedAt != nil {
			end = *interval.EndedAt
		}
		totalHours += window.Overlap(interval.StartedAt, end).Hours()
	}
	return ratedPowerW * totalHours / 1000
}
