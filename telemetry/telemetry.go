package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// PowerSample holds one periodic reading pulled from a monitored device.
//
// A sample carries either an instantaneous power level or a cumulative energy counter,
// depending on what the upstream platform reports for the device. Samples for one device
// are ordered by time; duplicated timestamps can occur and the later arrival wins.
type PowerSample struct {
	ID       uuid.UUID
	DeviceID uuid.UUID
	Time     time.Time

	PowerW              *float64 // instantaneous power draw, watts
	CumulativeEnergyKwh *float64 // lifetime energy counter, kWh
}

// UsageInterval holds one on/off interval for devices whose usage is tracked as discrete
// switch events rather than periodic power samples (e.g. lighting).
// EndedAt is nil while the device is still on.
type UsageInterval struct {
	ID        uuid.UUID
	DeviceID  uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
}
