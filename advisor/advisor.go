// Package advisor turns the current month's cost report into actionable saving advice:
// category share warnings, expensive-device callouts and quick-win estimates.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/pbak/homeenergy/catalog"
	"github.com/pbak/homeenergy/report"
)

// Advice types and severities as exposed to the API.
const (
	TypeGlobal   = "GLOBAL"
	TypeCategory = "CATEGORY"
	TypeDevice   = "DEVICE"

	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
)

// Advice is one recommendation produced for the user.
type Advice struct {
	Type             string     `json:"type"`
	Severity         string     `json:"severity"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	DeviceID         *uuid.UUID `json:"deviceId,omitempty"`
	EstimatedSavings *float64   `json:"estimatedSavings,omitempty"`
}

// Config carries the advisor's tunable thresholds.
type Config struct {
	LightingCategory string
	SocketsCategory  string

	// Share of the total monthly cost above which a category draws a warning.
	LightingShareThreshold float64
	SocketsShareThreshold  float64

	// Monthly cost above which a single device is called out.
	HighDeviceCost   float64
	MediumDeviceCost float64

	// Quick-win advice assumes the user can shave this many runtime hours off a device's
	// month; savings below the minimum are not worth suggesting.
	QuickWinHours     float64
	MinQuickWinSaving float64
}

// DefaultConfig mirrors the thresholds the product settled on.
func DefaultConfig() Config {
	return Config{
		LightingCategory:       "lighting",
		SocketsCategory:        "sockets",
		LightingShareThreshold: 0.30,
		SocketsShareThreshold:  0.50,
		HighDeviceCost:         30,
		MediumDeviceCost:       15,
		QuickWinHours:          30,
		MinQuickWinSaving:      1.0,
	}
}

// ReportBuilder is the slice of the report package the advisor needs.
type ReportBuilder interface {
	Build(ctx context.Context, kind report.PeriodKind, scope report.Scope) (report.Report, error)
}

type Advisor struct {
	reports ReportBuilder
	config  Config
	logger  *slog.Logger
}

func New(reports ReportBuilder, config Config) *Advisor {
	return &Advisor{
		reports: reports,
		config:  config,
		logger:  slog.Default().With("component", "advisor"),
	}
}

// MonthlyAdvice builds the current month cost report and derives advice from it.
func (a *Advisor) MonthlyAdvice(ctx context.Context) ([]Advice, error) {
	monthly, err := a.reports.Build(ctx, report.PeriodMonth, report.Scope{Source: catalog.SourceAll})
	if err != nil {
		return nil, fmt.Errorf("build monthly report: %w", err)
	}

	advices := []Advice{a.globalSummary(monthly)}
	advices = append(advices, a.categoryAdvice(monthly)...)
	advices = append(advices, a.deviceAdvice(monthly)...)
	return advices, nil
}

func (a *Advisor) globalSummary(monthly report.Report) Advice {
	if monthly.TotalCost <= 0 {
		return Advice{
			Type:     TypeGlobal,
			Severity: SeverityInfo,
			Title:    "No significant usage yet",
			Message: "There is no meaningful energy cost data for the current month yet. " +
				"Once the devices have been running for longer, more concrete advice will appear here.",
		}
	}
	return Advice{
		Type:     TypeGlobal,
		Severity: SeverityInfo,
		Title:    "Current month summary",
		Message:  fmt.Sprintf("The total energy cost for %s is about %.2f.", monthly.PeriodLabel, monthly.TotalCost),
	}
}

func (a *Advisor) categoryAdvice(monthly report.Report) []Advice {
	if monthly.TotalCost <= 0 {
		return nil
	}

	shares := map[string]float64{}
	for _, categoryTotal := range monthly.CategoryTotals {
		shares[categoryTotal.Category] = categoryTotal.Cost / monthly.TotalCost
	}

	var advices []Advice
	if share, ok := shares[a.config.LightingCategory]; ok && share > a.config.LightingShareThreshold {
		advices = append(advices, Advice{
			Type:     TypeCategory,
			Severity: SeverityWarning,
			Title:    "Lighting is a large share of your bill",
			Message: fmt.Sprintf("Lighting accounts for %.0f%% of this month's cost. "+
				"Consider LED bulbs or switching lights off in empty rooms.", share*100),
		})
	}
	if share, ok := shares[a.config.SocketsCategory]; ok && share > a.config.SocketsShareThreshold {
		advices = append(advices, Advice{
			Type:     TypeCategory,
			Severity: SeverityWarning,
			Title:    "Plugged-in devices dominate your bill",
			Message: fmt.Sprintf("Socket devices account for %.0f%% of this month's cost. "+
				"Check for appliances left running or in standby.", share*100),
		})
	}
	return advices
}

func (a *Advisor) deviceAdvice(monthly report.Report) []Advice {
	entries := make([]report.CostEntry, len(monthly.Entries))
	copy(entries, monthly.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Cost > entries[j].Cost })

	var advices []Advice
	for _, entry := range entries {
		switch {
		case entry.Cost >= a.config.HighDeviceCost:
			advices = append(advices, a.costCallout(entry, SeverityWarning,
				fmt.Sprintf("%s is expensive to run", entry.Name)))
		case entry.Cost >= a.config.MediumDeviceCost:
			advices = append(advices, a.costCallout(entry, SeverityInfo,
				fmt.Sprintf("%s is a notable cost", entry.Name)))
		}
	}
	return advices
}

// costCallout builds a per-device advice, attaching a quick-win saving estimate when the
// device's rated power makes one worth suggesting.
func (a *Advisor) costCallout(entry report.CostEntry, severity, title string) Advice {
	deviceID := entry.DeviceID
	advice := Advice{
		Type:     TypeDevice,
		Severity: severity,
		Title:    title,
		Message:  fmt.Sprintf("%s cost %.2f this month.", entry.Name, entry.Cost),
		DeviceID: &deviceID,
	}

	if entry.RatedPowerW != nil && entry.EnergyKwh > 0 {
		// savings from running the device QuickWinHours less, at the report's implied rate
		rate := entry.Cost / entry.EnergyKwh
		saving := *entry.RatedPowerW / 1000 * a.config.QuickWinHours * rate
		if saving >= a.config.MinQuickWinSaving {
			advice.EstimatedSavings = &saving
			advice.Message = fmt.Sprintf("%s Reducing its runtime by %.0f hours would save about %.2f.",
				advice.Message, a.config.QuickWinHours, saving)
		}
	}
	return advice
}
