package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbak/homeenergy/telemetry"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

func mustParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func f(v float64) *float64 { return &v }

func windowBetween(start, end string) timeutils.Period {
	return timeutils.Period{Start: mustParseTime(start), End: mustParseTime(end)}
}

func cumulativeSample(at string, kwh float64) telemetry.PowerSample {
	return telemetry.PowerSample{Time: mustParseTime(at), CumulativeEnergyKwh: f(kwh)}
}

func powerSample(at string, watts float64) telemetry.PowerSample {
	return telemetry.PowerSample{Time: mustParseTime(at), PowerW: f(watts)}
}

func TestAggregateEmptyWindow(t *testing.T) {
	agg := NewPeriodicSampleAggregator(0)

	got, err := agg.Aggregate(nil, windowBetween("2023-10-19T10:00:00Z", "2023-10-19T11:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, PeriodicResult{}, got)
}

func TestAggregateCumulativeCounter(t *testing.T) {
	agg := NewPeriodicSampleAggregator(0)
	window := windowBetween("2023-10-19T10:00:00Z", "2023-10-19T11:00:00Z")

	samples := []telemetry.PowerSample{
		cumulativeSample("2023-10-19T09:59:00Z", 4.0), // before the window, ignored
		cumulativeSample("2023-10-19T10:00:00Z", 5.0),
		cumulativeSample("2023-10-19T10:30:00Z", 5.3),
		cumulativeSample("2023-10-19T10:59:00Z", 5.5),
		cumulativeSample("2023-10-19T11:00:00Z", 9.0), // at the exclusive end, ignored
	}

	got, err := agg.Aggregate(samples, window)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.EnergyKwh, 1e-9)
	assert.InDelta(t, 500, got.AvgPowerW, 1e-6)
}

func TestAggregateCounterReset(t *testing.T) {
	agg := NewPeriodicSampleAggregator(0)
	window := windowBetween("2023-10-19T10:00:00Z", "2023-10-19T11:00:00Z")

	// The second transition decreases: the meter was reset, so the aggregation must fail
	// rather than produce negative energy.
	samples := []telemetry.PowerSample{
		cumulativeSample("2023-10-19T10:00:00Z", 5.0),
		cumulativeSample("2023-10-19T10:20:00Z", 5.0),
		cumulativeSample("2023-10-19T10:40:00Z", 4.9),
	}

	_, err := agg.Aggregate(samples, window)
	assert.ErrorIs(t, err, ErrCounterReset)
}

func TestAggregateInstantaneousPower(t *testing.T) {
	agg := NewPeriodicSampleAggregator(0)
	window := windowBetween("2023-10-19T10:00:00Z", "2023-10-19T11:00:00Z")

	// A constant 1000W over the full hour integrates to 1 kWh.
	samples := []telemetry.PowerSample{
		powerSample("2023-10-19T10:00:00Z", 1000),
		powerSample("2023-10-19T10:15:00Z", 1000),
		powerSample("2023-10-19T10:30:00Z", 1000),
		powerSample("2023-10-19T10:45:00Z", 1000),
		powerSample("2023-10-19T10:59:59Z", 1000),
	}

	got, err := agg.Aggregate(samples, window)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.EnergyKwh, 1e-3)
	assert.InDelta(t, 1000, got.AvgPowerW, 1.0)
}

func TestAggregateRampIsTrapezoidal(t *testing.T) {
	agg := NewPeriodicSampleAggregator(0)
	window := windowBetween("2023-10-19T10:00:00Z", "2023-10-19T11:00:00Z")

	// Power ramps linearly from 0 to 1000W over the hour: the trapezoid rule gives
	// the exact 0.5 kWh.
	samples := []telemetry.PowerSample{
		powerSample("2023-10-19T10:00:00Z", 0),
		powerSample("2023-10-19T10:12:00Z", 200),
		powerSample("2023-10-19T10:24:00Z", 400),
		powerSample("2023-10-19T10:36:00Z", 600),
		powerSample("2023-10-19T10:48:00Z", 800),
	}
	// last point sits just inside the exclusive window end
	samples = append(samples, powerSample("2023-10-19T10:59:59.999Z", 1000))

	got, err := agg.Aggregate(samples, window)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.EnergyKwh, 2e-3)
}

func TestAggregateExcludesOfflineGaps(t *testing.T) {
	agg := NewPeriodicSampleAggregator(10 * time.Minute)
	window := windowBetween("2023-10-19T10:00:00Z", "2023-10-19T12:00:00Z")

	// A 40 minute hole between 10:10 and 10:50 means the device was offline: that span is
	// excluded from the integration entirely, not assumed zero or last-value.
	samples := []telemetry.PowerSample{
		powerSample("2023-10-19T10:00:00Z", 600),
		powerSample("2023-10-19T10:10:00Z", 600),
		powerSample("2023-10-19T10:50:00Z", 600),
		powerSample("2023-10-19T11:00:00Z", 600),
	}

	got, err := agg.Aggregate(samples, window)
	require.NoError(t, err)
	// only two 10-minute spans integrate: 600W * (1/3)h = 0.2 kWh
	assert.InDelta(t, 0.2, got.EnergyKwh, 1e-9)
}

func TestAggregateDuplicateTimestampLastWriteWins(t *testing.T) {
	agg := NewPeriodicSampleAggregator(0)
	window := windowBetween("2023-10-19T10:00:00Z", "2023-10-19T11:00:00Z")

	samples := []telemetry.PowerSample{
		cumulativeSample("2023-10-19T10:00:00Z", 5.0),
		cumulativeSample("2023-10-19T10:30:00Z", 6.0),
		cumulativeSample("2023-10-19T10:30:00Z", 5.5), // later arrival for the same instant wins
	}

	got, err := agg.Aggregate(samples, window)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.EnergyKwh, 1e-9)
}
