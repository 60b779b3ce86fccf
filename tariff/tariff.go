package tariff

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNoTariffConfigured is returned when a tariff is requested before one was ever set.
	ErrNoTariffConfigured = errors.New("no tariff configured")
	// ErrInvalidTariffValue is returned for non-positive rates or a VAT percentage outside 0..100.
	ErrInvalidTariffValue = errors.New("invalid tariff value")
	// ErrInconsistentTariffInput is returned when the supplied net/gross/vat values contradict
	// each other, or when they are insufficient to derive a gross rate.
	ErrInconsistentTariffInput = errors.New("inconsistent tariff input")
)

// consistencyTolerance is the maximum relative disagreement allowed when net, gross and vat
// are all supplied together.
const consistencyTolerance = 0.005

// Tariff is one immutable version of the electricity tariff. Absent fields are nil.
// Exactly one tariff is current at a time; updates replace the whole value.
type Tariff struct {
	NetRatePerKwh   *float64  `json:"netRatePerKwh,omitempty"`
	GrossRatePerKwh *float64  `json:"grossRatePerKwh,omitempty"`
	VatPercent      *float64  `json:"vatPercent,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Version         uint64    `json:"version"`
}

// GrossRate returns the billing-relevant rate per kWh. The resolver only ever stores
// tariffs where the gross rate is set or derivable, so ok is false only for hand-built
// Tariff values.
func (t Tariff) GrossRate() (float64, bool) {
	if t.GrossRatePerKwh != nil {
		return *t.GrossRatePerKwh, true
	}
	if t.NetRatePerKwh != nil && t.VatPercent != nil {
		return *t.NetRatePerKwh * (1 + *t.VatPercent/100), true
	}
	return 0, false
}

// Input is a partial tariff update. Nil fields are left at their current values.
type Input struct {
	NetRatePerKwh   *float64 `json:"netRatePerKwh,omitempty"`
	GrossRatePerKwh *float64 `json:"grossRatePerKwh,omitempty"`
	VatPercent      *float64 `json:"vatPercent,omitempty"`
}

func (in Input) isEmpty() bool {
	return in.NetRatePerKwh == nil && in.GrossRatePerKwh == nil && in.VatPercent == nil
}

// resolve validates the input values and derives whichever of net/gross/vat is missing but
// computable via gross = net * (1 + vat/100).
//
// Explicitly supplied fields always win. The previous tariff only contributes a missing
// companion value when the input alone is not enough to derive a gross rate - it is never
// consistency-checked against the input, since its derived fields go stale the moment any
// one field changes.
func resolve(previous *Tariff, in Input) (Tariff, error) {
	if in.isEmpty() {
		return Tariff{}, fmt.Errorf("%w: tariff update requires at least one field", ErrInvalidTariffValue)
	}

	if in.NetRatePerKwh != nil && (!isFinite(*in.NetRatePerKwh) || *in.NetRatePerKwh <= 0) {
		return Tariff{}, ErrInvalidTariffValue
	}
	if in.GrossRatePerKwh != nil && (!isFinite(*in.GrossRatePerKwh) || *in.GrossRatePerKwh <= 0) {
		return Tariff{}, ErrInvalidTariffValue
	}
	if in.VatPercent != nil && (!isFinite(*in.VatPercent) || *in.VatPercent < 0 || *in.VatPercent > 100) {
		return Tariff{}, ErrInvalidTariffValue
	}

	net, gross, vat := in.NetRatePerKwh, in.GrossRatePerKwh, in.VatPercent

	switch {
	case net != nil && gross != nil && vat != nil:
		expected := *net * (1 + *vat/100)
		if relativeError(*gross, expected) > consistencyTolerance {
			return Tariff{}, ErrInconsistentTariffInput
		}
	case net != nil && vat != nil:
		g := *net * (1 + *vat/100)
		gross = &g
	case gross != nil && vat != nil:
		n := *gross / (1 + *vat/100)
		net = &n
	case net != nil && gross != nil:
		if *gross < *net {
			return Tariff{}, ErrInconsistentTariffInput
		}
		v := (*gross / *net - 1) * 100
		// the derived VAT is bound to 0..100 just like an explicitly supplied one
		if v > 100 {
			return Tariff{}, ErrInvalidTariffValue
		}
		vat = &v
	case net != nil:
		if previous != nil && previous.VatPercent != nil {
			v := *previous.VatPercent
			g := *net * (1 + v/100)
			vat, gross = &v, &g
		} else {
			// a lone net rate leaves no way to compute the billing-relevant gross rate
			return Tariff{}, ErrInconsistentTariffInput
		}
	case gross != nil:
		if previous != nil && previous.VatPercent != nil {
			v := *previous.VatPercent
			n := *gross / (1 + v/100)
			vat, net = &v, &n
		}
		// gross alone is still enough to price energy
	case vat != nil:
		if previous != nil && previous.NetRatePerKwh != nil {
			n := *previous.NetRatePerKwh
			g := n * (1 + *vat/100)
			net, gross = &n, &g
		} else if previous != nil && previous.GrossRatePerKwh != nil {
			g := *previous.GrossRatePerKwh
			n := g / (1 + *vat/100)
			gross, net = &g, &n
		} else {
			return Tariff{}, ErrInconsistentTariffInput
		}
	}

	return Tariff{
		NetRatePerKwh:   net,
		GrossRatePerKwh: gross,
		VatPercent:      vat,
	}, nil
}

func relativeError(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
