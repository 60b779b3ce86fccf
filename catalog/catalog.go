// Package catalog provides the read view onto the device inventory that reports are built
// from. Metered devices live in the external platform; manual devices live in the local
// repository. The engine only ever sees validated snapshots.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pbak/homeenergy/device"
)

// ErrDeviceNotFound is returned when neither source knows the requested device.
var ErrDeviceNotFound = errors.New("device not found")

// Source selects which halves of the inventory a query covers.
type Source string

const (
	SourceAll     Source = "all"
	SourceMetered Source = "metered"
	SourceManual  Source = "manual"
)

// Filter narrows a List call.
type Filter struct {
	Source   Source
	Category string // empty matches every category
}

// MeteredSource lists the devices known to the external measurement platform.
type MeteredSource interface {
	ListMetered(ctx context.Context) ([]device.Device, error)
}

// ManualSource lists the locally declared devices.
type ManualSource interface {
	ListManualDevices(ctx context.Context) ([]device.Device, error)
}

// Catalog merges the two device sources behind one read interface.
type Catalog struct {
	metered MeteredSource
	manual  ManualSource
	logger  *slog.Logger
}

func New(metered MeteredSource, manual ManualSource) *Catalog {
	return &Catalog{
		metered: metered,
		manual:  manual,
		logger:  slog.Default().With("component", "catalog"),
	}
}

// List returns a validated snapshot of the devices matching the filter. Devices that fail
// validation are dropped here, at the boundary, so the computation core can rely on the
// invariants holding.
func (c *Catalog) List(ctx context.Context, filter Filter) ([]device.Device, error) {
	var devices []device.Device

	if filter.Source == SourceAll || filter.Source == SourceMetered || filter.Source == "" {
		metered, err := c.metered.ListMetered(ctx)
		if err != nil {
			return nil, fmt.Errorf("list metered devices: %w", err)
		}
		devices = append(devices, metered...)
	}
	if filter.Source == SourceAll || filter.Source == SourceManual || filter.Source == "" {
		manual, err := c.manual.ListManualDevices(ctx)
		if err != nil {
			return nil, fmt.Errorf("list manual devices: %w", err)
		}
		devices = append(devices, manual...)
	}

	filtered := devices[:0]
	for _, d := range devices {
		if filter.Category != "" && d.Category != filter.Category {
			continue
		}
		if err := d.Validate(); err != nil {
			c.logger.Warn("Dropping invalid catalog entry", "device_id", d.ID, "error", err)
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered, nil
}

// Get returns one device by id, looking in both sources.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (device.Device, error) {
	devices, err := c.List(ctx, Filter{Source: SourceAll})
	if err != nil {
		return device.Device{}, err
	}
	for _, d := range devices {
		if d.ID == id {
			return d, nil
		}
	}
	return device.Device{}, ErrDeviceNotFound
}
