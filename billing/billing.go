// Package billing converts device power ratings and usage assumptions into energy
// quantities and prices energy using the current tariff.
package billing

import (
	"errors"
	"fmt"
	"math"

	"github.com/pbak/homeenergy/tariff"
)

var (
	// ErrMissingRatedPower is returned when an estimate is requested for a device whose
	// rated power is unset or zero. Callers surface this to the user rather than
	// silently reporting zero cost.
	ErrMissingRatedPower = errors.New("device has no rated power")
	// ErrInvalidUsageSpec is returned for non-positive or non-finite usage inputs.
	ErrInvalidUsageSpec = errors.New("invalid usage spec")
)

// SpecKind discriminates the two ways a user can declare assumed usage.
type SpecKind string

const (
	SpecHoursTotal   SpecKind = "hours"
	SpecDaysAveraged SpecKind = "daysAveraged"
)

// UsageSpec is a user-declared assumption about how long a device runs: either a total
// number of hours, or a number of days with an average runtime per day. Exactly one
// variant is active, selected by Kind.
type UsageSpec struct {
	Kind SpecKind

	Hours float64 // SpecHoursTotal

	Days           int     // SpecDaysAveraged
	AvgHoursPerDay float64 // SpecDaysAveraged
}

// HoursTotal declares a total runtime of h hours.
func HoursTotal(h float64) UsageSpec {
	return UsageSpec{Kind: SpecHoursTotal, Hours: h}
}

// DaysAveraged declares a runtime of `days` days at `avgHoursPerDay` hours each.
func DaysAveraged(days int, avgHoursPerDay float64) UsageSpec {
	return UsageSpec{Kind: SpecDaysAveraged, Days: days, AvgHoursPerDay: avgHoursPerDay}
}

// totalHours collapses the spec into one runtime figure.
func (s UsageSpec) totalHours() (float64, error) {
	switch s.Kind {
	case SpecHoursTotal:
		if !isFinite(s.Hours) || s.Hours <= 0 {
			return 0, fmt.Errorf("%w: hours must be > 0", ErrInvalidUsageSpec)
		}
		return s.Hours, nil
	case SpecDaysAveraged:
		if s.Days <= 0 {
			return 0, fmt.Errorf("%w: days must be > 0", ErrInvalidUsageSpec)
		}
		if !isFinite(s.AvgHoursPerDay) || s.AvgHoursPerDay <= 0 {
			return 0, fmt.Errorf("%w: average hours per day must be > 0", ErrInvalidUsageSpec)
		}
		return float64(s.Days) * s.AvgHoursPerDay, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidUsageSpec, s.Kind)
	}
}

// EstimateUsage converts a rated power and a usage spec into an energy quantity in kWh.
func EstimateUsage(ratedPowerW *float64, spec UsageSpec) (float64, error) {
	if ratedPowerW == nil || *ratedPowerW <= 0 {
		return 0, ErrMissingRatedPower
	}
	hours, err := spec.totalHours()
	if err != nil {
		return 0, err
	}
	return *ratedPowerW * hours / 1000, nil
}

// Price returns the cost of the given energy at the given tariff's gross rate.
func Price(energyKwh float64, t tariff.Tariff) (float64, error) {
	if energyKwh < 0 {
		return 0, fmt.Errorf("energy must be >= 0, got %f", energyKwh)
	}
	rate, ok := t.GrossRate()
	if !ok {
		return 0, fmt.Errorf("price energy: %w", tariff.ErrNoTariffConfigured)
	}
	return energyKwh * rate, nil
}

// Estimate is the answer to a single-device cost estimation request.
type Estimate struct {
	EnergyKwh  float64 `json:"energyKwh"`
	Cost       float64 `json:"cost"`
	RatePerKwh float64 `json:"ratePerKwh"`
}

// EstimateCost combines EstimateUsage and Price for the given device rating, usage spec
// and tariff.
func EstimateCost(ratedPowerW *float64, spec UsageSpec, t tariff.Tariff) (Estimate, error) {
	energyKwh, err := EstimateUsage(ratedPowerW, spec)
	if err != nil {
		return Estimate{}, err
	}
	cost, err := Price(energyKwh, t)
	if err != nil {
		return Estimate{}, err
	}
	rate, _ := t.GrossRate()
	return Estimate{
		EnergyKwh:  energyKwh,
		Cost:       cost,
		RatePerKwh: rate,
	}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
