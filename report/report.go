// Package report orchestrates the estimators and aggregators into per-device cost entries
// for a period, rolled up by category and grand total.
package report

import (
	"errors"

	"github.com/google/uuid"

	"github.com/pbak/homeenergy/aggregate"
	"github.com/pbak/homeenergy/billing"
	"github.com/pbak/homeenergy/tariff"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

// PeriodKind selects the report's time scope.
type PeriodKind string

const (
	PeriodMonth    PeriodKind = "month" // the current calendar month
	PeriodDay      PeriodKind = "day"   // today
	PeriodLastHour PeriodKind = "hour"  // the sliding last hour
)

// ErrorKind is the wire-friendly classification of a per-device failure.
type ErrorKind string

const (
	KindNoTariffConfigured      ErrorKind = "NoTariffConfigured"
	KindInvalidTariffValue      ErrorKind = "InvalidTariffValue"
	KindInconsistentTariffInput ErrorKind = "InconsistentTariffInput"
	KindMissingRatedPower       ErrorKind = "MissingRatedPower"
	KindInvalidUsageSpec        ErrorKind = "InvalidUsageSpec"
	KindCounterResetDetected    ErrorKind = "CounterResetDetected"
	KindUpstreamUnavailable     ErrorKind = "UpstreamUnavailable"
)

// KindOf classifies an error into its ErrorKind. Errors that are not one of the engine's
// own failure modes - timeouts, cancelled contexts, transport errors - are upstream
// problems by definition.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, tariff.ErrNoTariffConfigured):
		return KindNoTariffConfigured
	case errors.Is(err, tariff.ErrInvalidTariffValue):
		return KindInvalidTariffValue
	case errors.Is(err, tariff.ErrInconsistentTariffInput):
		return KindInconsistentTariffInput
	case errors.Is(err, billing.ErrMissingRatedPower):
		return KindMissingRatedPower
	case errors.Is(err, billing.ErrInvalidUsageSpec):
		return KindInvalidUsageSpec
	case errors.Is(err, aggregate.ErrCounterReset):
		return KindCounterResetDetected
	default:
		return KindUpstreamUnavailable
	}
}

// CostEntry is one device's share of a cost report. Entries are produced fresh per build
// and never mutated afterwards.
type CostEntry struct {
	DeviceID    uuid.UUID `json:"deviceId"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	RatedPowerW *float64  `json:"ratedPowerW,omitempty"`
	EnergyKwh   float64   `json:"energyKwh"`
	Cost        float64   `json:"cost"`
	PeriodLabel string    `json:"periodLabel"`
}

// CategoryTotal is the cost summed over all devices sharing a category. It is derived from
// the entry set on every build and never stored independently.
type CategoryTotal struct {
	Category string  `json:"category"`
	Cost     float64 `json:"cost"`
}

// SkippedDevice records a device that was excluded from a report because its computation
// failed. Partial failure is surfaced in the report structure, never silently dropped.
type SkippedDevice struct {
	DeviceID  uuid.UUID `json:"deviceId"`
	ErrorKind ErrorKind `json:"errorKind"`
}

// Report is the full answer to one build request.
type Report struct {
	PeriodLabel    string           `json:"periodLabel"`
	Period         timeutils.Period `json:"period"`
	Entries        []CostEntry      `json:"entries"`
	CategoryTotals []CategoryTotal  `json:"categoryTotals"`
	TotalCost      float64          `json:"totalCost"`
	Skipped        []SkippedDevice  `json:"skipped"`
}

// TariffSource yields the tariff that prices a report. Reports for historical periods are
// priced at the tariff current when the report is requested - the engine keeps no rate
// history. This is a documented simplification, not a bug.
type TariffSource interface {
	Current() (tariff.Tariff, error)
}

var _ TariffSource = (*tariff.Resolver)(nil)
