// Package aggregate turns raw usage data - periodic power samples or discrete on/off
// intervals - into energy quantities over an absolute time window.
package aggregate

import (
	"errors"
	"time"

	"github.com/pbak/homeenergy/telemetry"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

// ErrCounterReset is returned when a cumulative energy counter decreases within the
// window, which indicates the meter was reset. Failing loudly beats reporting a
// negative energy figure.
var ErrCounterReset = errors.New("cumulative energy counter decreased within window")

// DefaultMaxSampleGap is the gap between consecutive samples above which the device is
// considered to have been offline, used when no explicit gap is configured.
const DefaultMaxSampleGap = 15 * time.Minute

// PeriodicResult is the outcome of aggregating periodic samples over a window.
type PeriodicResult struct {
	EnergyKwh float64
	AvgPowerW float64
}

// PeriodicSampleAggregator sums periodic power/energy readings into a window's energy.
//
// Devices report either a lifetime cumulative energy counter (preferred, energy is the
// counter delta across the window) or instantaneous power (energy is the time-weighted
// trapezoid integral). Gaps longer than MaxGap are excluded from the integration rather
// than assumed zero or last-value: the device was most likely offline.
type PeriodicSampleAggregator struct {
	MaxGap time.Duration
}

// NewPeriodicSampleAggregator returns an aggregator with the given offline-gap threshold.
// A non-positive maxGap selects DefaultMaxSampleGap.
func NewPeriodicSampleAggregator(maxGap time.Duration) PeriodicSampleAggregator {
	if maxGap <= 0 {
		maxGap = DefaultMaxSampleGap
	}
	return PeriodicSampleAggregator{MaxGap: maxGap}
}

// Aggregate computes the energy used and average power over the window from the given
// samples. Samples outside [window.Start, window.End) are ignored. An empty window is
// not an error: it yields zero energy and zero average power.
func (a PeriodicSampleAggregator) Aggregate(samples []telemetry.PowerSample, window timeutils.Period) (PeriodicResult, error) {
	inWindow := filterWindow(samples, window)
	if len(inWindow) == 0 {
		return PeriodicResult{}, nil
	}

	var energyKwh float64
	if hasCumulative(inWindow) {
		var err error
		energyKwh, err = cumulativeEnergy(inWindow)
		if err != nil {
			return PeriodicResult{}, err
		}
	} else {
		energyKwh = a.integratePower(inWindow)
	}

	result := PeriodicResult{EnergyKwh: energyKwh}
	if hours := window.Hours(); hours > 0 {
		result.AvgPowerW = energyKwh * 1000 / hours
	}
	return result, nil
}

// filterWindow selects the samples within the window, resolving duplicate timestamps by
// keeping the later arrival.
func filterWindow(samples []telemetry.PowerSample, window timeutils.Period) []telemetry.PowerSample {
	var inWindow []telemetry.PowerSample
	for _, sample := range samples {
		if !window.Contains(sample.Time) {
			continue
		}
		if n := len(inWindow); n > 0 && inWindow[n-1].Time.Equal(sample.Time) {
			inWindow[n-1] = sample
			continue
		}
		inWindow = append(inWindow, sample)
	}
	return inWindow
}

func hasCumulative(samples []telemetry.PowerSample) bool {
	for _, sample := range samples {
		if sample.CumulativeEnergyKwh != nil {
			return true
		}
	}
	return false
}

// cumulativeEnergy returns last-first of the counter readings in the window. The counter
// is assumed monotonic; any decrease between consecutive readings fails with
// ErrCounterReset.
func cumulativeEnergy(samples []telemetry.PowerSample) (float64, error) {
	var readings []float64
	for _, sample := range samples {
		if sample.CumulativeEnergyKwh != nil {
			readings = append(readings, *sample.CumulativeEnergyKwh)
		}
	}
	if len(readings) == 0 {
		return 0, nil
	}
	for i := 1; i < len(readings); i++ {
		if readings[i] < readings[i-1] {
			return 0, ErrCounterReset
		}
	}
	return readings[len(readings)-1] - readings[0], nil
}

// integratePower computes the trapezoid integral of instantaneous power over time,
// skipping pairs of samples that are further apart than MaxGap.
func (a PeriodicSampleAggregator) integratePower(samples []telemetry.PowerSample) float64 {
	var powered []telemetry.PowerSample
	for _, sample := range samples {
		if sample.PowerW != nil {
			powered = append(powered, sample)
		}
	}

	energyKwh := 0.0
	for i := 1; i < len(powered); i++ {
		prev, curr := powered[i-1], powered[i]
		gap := curr.Time.Sub(prev.Time)
		if gap <= 0 || gap > a.MaxGap {
			continue
		}
		avgPowerKw := (*prev.PowerW + *curr.PowerW) / 2 / 1000
		energyKwh += avgPowerKw * gap.Hours()
	}
	return energyKwh
}
