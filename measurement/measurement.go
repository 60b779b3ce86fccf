// Package measurement reads raw usage data - power samples and on/off intervals - from
// the external measurement platform. The engine reads a time-bounded view per call and
// never caches across calls, so reports always reflect the freshest store state.
package measurement

import (
	"context"

	"github.com/google/uuid"

	"github.com/pbak/homeenergy/telemetry"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

// Store is the read interface onto the measurement platform.
type Store interface {
	// Samples returns the periodic power samples for the device within the window,
	// ordered by time.
	Samples(ctx context.Context, deviceID uuid.UUID, window timeutils.Period) ([]telemetry.PowerSample, error)
	// Intervals returns the usage intervals for the device that started within the window.
	Intervals(ctx context.Context, deviceID uuid.UUID, window timeutils.Period) ([]telemetry.UsageInterval, error)
}
