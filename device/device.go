package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two closed variants of a device.
type Kind string

const (
	// KindMetered is a device monitored by the external measurement platform, which reports
	// periodic power samples or usage intervals for it.
	KindMetered Kind = "metered"
	// KindManual is a user-declared device with no live measurements; its usage can only be
	// estimated from its rated power and an assumed runtime.
	KindManual Kind = "manual"
)

// Device is a snapshot of one entry in the device catalog.
//
// RatedPowerW is optional: metered devices report real consumption so the rating is only
// needed for interval-tracked categories, while manual devices cannot be estimated without it.
type Device struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	RatedPowerW *float64  `json:"ratedPowerW,omitempty"`
	Description string    `json:"description,omitempty"`

	// Only meaningful for KindMetered.
	Online   bool      `json:"online,omitempty"`
	LastSeen time.Time `json:"lastSeen,omitempty"`
}

// Validate checks the invariants that the catalog boundary guarantees to the computation
// core, so that the aggregators and estimators never have to re-check them.
func (d Device) Validate() error {
	if d.ID == uuid.Nil {
		return errors.New("device has no id")
	}
	switch d.Kind {
	case KindMetered, KindManual:
	default:
		return fmt.Errorf("unknown device kind: %q", d.Kind)
	}
	if d.RatedPowerW != nil && *d.RatedPowerW <= 0 {
		return fmt.Errorf("rated power must be > 0, got %f", *d.RatedPowerW)
	}
	return nil
}
