package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbak/homeenergy/aggregate"
	"github.com/pbak/homeenergy/billing"
	"github.com/pbak/homeenergy/catalog"
	"github.com/pbak/homeenergy/device"
	"github.com/pbak/homeenergy/measurement"
	"github.com/pbak/homeenergy/tariff"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

// DeviceLister is the slice of the catalog the builder needs.
type DeviceLister interface {
	List(ctx context.Context, filter catalog.Filter) ([]device.Device, error)
}

// Scope narrows a report to a device source, a category, or a single device.
type Scope struct {
	Source   catalog.Source
	Category string
	DeviceID *uuid.UUID
}

// Config carries the report builder's tunables.
type Config struct {
	// IntervalCategories lists the device categories whose usage is tracked as on/off
	// intervals (e.g. lighting) instead of periodic power samples.
	IntervalCategories []string
	// MaxSampleGap is the offline threshold passed to the periodic aggregator.
	MaxSampleGap time.Duration
	// DeviceTimeout bounds the upstream reads for a single device. A device that times
	// out is skipped; the rest of the report is still delivered.
	DeviceTimeout time.Duration
	// Location defines the local calendar for month/day period boundaries.
	Location *time.Location
}

// Builder produces cost reports. It holds no per-request state: building the same report
// twice against unchanged inputs yields identical entries and totals.
type Builder struct {
	lister  DeviceLister
	store   measurement.Store
	tariffs TariffSource

	periodic           aggregate.PeriodicSampleAggregator
	interval           aggregate.IntervalUsageAggregator
	intervalCategories map[string]bool
	deviceTimeout      time.Duration
	location           *time.Location

	now    func() time.Time
	logger *slog.Logger
}

func NewBuilder(lister DeviceLister, store measurement.Store, tariffs TariffSource, config Config) *Builder {
	intervalCategories := make(map[string]bool, len(config.IntervalCategories))
	for _, category := range config.IntervalCategories {
		intervalCategories[category] = true
	}

	deviceTimeout := config.DeviceTimeout
	if deviceTimeout <= 0 {
		deviceTimeout = 5 * time.Second
	}
	location := config.Location
	if location == nil {
		location = time.UTC
	}

	return &Builder{
		lister:             lister,
		store:              store,
		tariffs:            tariffs,
		periodic:           aggregate.NewPeriodicSampleAggregator(config.MaxSampleGap),
		intervalCategories: intervalCategories,
		deviceTimeout:      deviceTimeout,
		location:           location,
		now:                time.Now,
		logger:             slog.Default().With("component", "report_builder"),
	}
}

// deviceOutcome is the result of computing one device, either an entry or a skip reason.
type deviceOutcome struct {
	entry   *CostEntry
	skipped *SkippedDevice
}

// Build produces the cost report for the given period kind and scope.
//
// Per-device computations have no cross-device dependency, so they fan out to one
// goroutine each and fan back in before aggregation. An individual device failure is
// recorded in Skipped and excluded from the totals; only a missing tariff or an
// unreachable catalog fails the report as a whole.
func (b *Builder) Build(ctx context.Context, kind PeriodKind, scope Scope) (Report, error) {
	currentTariff, err := b.tariffs.Current()
	if err != nil {
		return Report{}, err
	}

	window, label, err := b.period(kind)
	if err != nil {
		return Report{}, err
	}

	devices, err := b.lister.List(ctx, catalog.Filter{Source: scope.Source, Category: scope.Category})
	if err != nil {
		return Report{}, fmt.Errorf("collect devices: %w", err)
	}
	if scope.DeviceID != nil {
		narrowed := devices[:0]
		for _, d := range devices {
			if d.ID == *scope.DeviceID {
				narrowed = append(narrowed, d)
			}
		}
		devices = narrowed
	}

	outcomes := make([]deviceOutcome, len(devices))
	var wg sync.WaitGroup
	for i, d := range devices {
		wg.Add(1)
		go func(i int, d device.Device) {
			defer wg.Done()
			deviceCtx, cancel := context.WithTimeout(ctx, b.deviceTimeout)
			defer cancel()
			outcomes[i] = b.computeDevice(deviceCtx, d, currentTariff, window, label)
		}(i, d)
	}
	wg.Wait()

	report := Report{
		PeriodLabel: label,
		Period:      window,
		Entries:     []CostEntry{},
		Skipped:     []SkippedDevice{},
	}
	for _, outcome := range outcomes {
		if outcome.entry != nil {
			report.Entries = append(report.Entries, *outcome.entry)
		}
		if outcome.skipped != nil {
			report.Skipped = append(report.Skipped, *outcome.skipped)
		}
	}

	// Deterministic ordering keeps repeated builds of the same inputs identical.
	sort.Slice(report.Entries, func(i, j int) bool {
		left, right := report.Entries[i], report.Entries[j]
		if left.Name != right.Name {
			return left.Name < right.Name
		}
		return left.DeviceID.String() < right.DeviceID.String()
	})
	sort.Slice(report.Skipped, func(i, j int) bool {
		return report.Skipped[i].DeviceID.String() < report.Skipped[j].DeviceID.String()
	})

	report.CategoryTotals, report.TotalCost = totals(report.Entries)
	return report, nil
}

// computeDevice runs the per-device stage of the pipeline: pick the aggregation strategy,
// compute energy, price it.
func (b *Builder) computeDevice(ctx context.Context, d device.Device, currentTariff tariff.Tariff, window timeutils.Period, label string) deviceOutcome {
	energyKwh, err := b.deviceEnergy(ctx, d, window)
	if err != nil {
		b.logger.Info("Skipping device in report", "device_id", d.ID, "error", err)
		return deviceOutcome{skipped: &SkippedDevice{DeviceID: d.ID, ErrorKind: KindOf(err)}}
	}

	cost, err := billing.Price(energyKwh, currentTariff)
	if err != nil {
		b.logger.Info("Skipping device in report", "device_id", d.ID, "error", err)
		return deviceOutcome{skipped: &SkippedDevice{DeviceID: d.ID, ErrorKind: KindOf(err)}}
	}

	return deviceOutcome{entry: &CostEntry{
		DeviceID:    d.ID,
		Name:        d.Name,
		Category:    d.Category,
		RatedPowerW: d.RatedPowerW,
		EnergyKwh:   energyKwh,
		Cost:        cost,
		PeriodLabel: label,
	}}
}

// deviceEnergy selects the aggregation strategy for the device and returns its energy over
// the window. Interval-tracked categories always take the interval path, even when
// periodic samples also exist for the device - the interval computation wins by rule, so
// the choice never races on which data source answers first.
func (b *Builder) deviceEnergy(ctx context.Context, d device.Device, window timeutils.Period) (float64, error) {
	if b.intervalCategories[d.Category] {
		if d.RatedPowerW == nil || *d.RatedPowerW <= 0 {
			return 0, billing.ErrMissingRatedPower
		}
		intervals, err := b.store.Intervals(ctx, d.ID, window)
		if err != nil {
			return 0, fmt.Errorf("read intervals: %w", err)
		}
		return b.interval.Aggregate(intervals, *d.RatedPowerW, window), nil
	}

	samples, err := b.store.Samples(ctx, d.ID, window)
	if err != nil {
		return 0, fmt.Errorf("read samples: %w", err)
	}
	result, err := b.periodic.Aggregate(samples, window)
	if err != nil {
		return 0, err
	}
	return result.EnergyKwh, nil
}

// period resolves a period kind into an absolute window and its label.
func (b *Builder) period(kind PeriodKind) (timeutils.Period, string, error) {
	now := b.now()
	switch kind {
	case PeriodMonth:
		return timeutils.MonthPeriod(now, b.location), timeutils.MonthLabel(now, b.location), nil
	case PeriodDay:
		return timeutils.DayPeriod(now, b.location), timeutils.DayLabel(now, b.location), nil
	case PeriodLastHour:
		return timeutils.LastHourPeriod(now), "last-hour", nil
	default:
		return timeutils.Period{}, "", fmt.Errorf("unknown period kind: %q", kind)
	}
}

func totals(entries []CostEntry) ([]CategoryTotal, float64) {
	byCategory := map[string]float64{}
	total := 0.0
	for _, entry := range entries {
		byCategory[entry.Category] += entry.Cost
		total += entry.Cost
	}

	categoryTotals := make([]CategoryTotal, 0, len(byCategory))
	for category, cost := range byCategory {
		categoryTotals = append(categoryTotals, CategoryTotal{Category: category, Cost: cost})
	}
	sort.Slice(categoryTotals, func(i, j int) bool {
		return categoryTotals[i].Category < categoryTotals[j].Category
	})
	return categoryTotals, total
}
