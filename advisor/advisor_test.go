package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbak/homeenergy/report"
)

func f(v float64) *float64 { return &v }

type fakeReports struct {
	report report.Report
	err    error
}

func (r fakeReports) Build(ctx context.Context, kind report.PeriodKind, scope report.Scope) (report.Report, error) {
	return r.report, r.err
}

func adviceTitles(advices []Advice) []string {
	titles := make([]string, 0, len(advices))
	for _, advice := range advices {
		titles = append(titles, advice.Title)
	}
	return titles
}

func TestMonthlyAdviceEmptyMonth(t *testing.T) {
	advisor := New(fakeReports{report: report.Report{PeriodLabel: "2023-10"}}, DefaultConfig())

	got, err := advisor.MonthlyAdvice(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, TypeGlobal, got[0].Type)
	assert.Equal(t, "No significant usage yet", got[0].Title)
}

func TestMonthlyAdviceCategoryShares(t *testing.T) {
	lampID, heaterID := uuid.New(), uuid.New()
	monthly := report.Report{
		PeriodLabel: "2023-10",
		Entries: []report.CostEntry{
			{DeviceID: lampID, Name: "Hall light", Category: "lighting", EnergyKwh: 4, Cost: 4},
			{DeviceID: heaterID, Name: "Heater", Category: "sockets", EnergyKwh: 6, Cost: 6},
		},
		CategoryTotals: []report.CategoryTotal{
			{Category: "lighting", Cost: 4},
			{Category: "sockets", Cost: 6},
		},
		TotalCost: 10,
	}

	advisor := New(fakeReports{report: monthly}, DefaultConfig())

	got, err := advisor.MonthlyAdvice(context.Background())
	require.NoError(t, err)

	titles := adviceTitles(got)
	// lighting is 40% > 30% threshold, sockets 60% > 50% threshold
	assert.Contains(t, titles, "Lighting is a large share of your bill")
	assert.Contains(t, titles, "Plugged-in devices dominate your bill")
}

func TestMonthlyAdviceDeviceCallouts(t *testing.T) {
	expensiveID, notableID, cheapID := uuid.New(), uuid.New(), uuid.New()
	monthly := report.Report{
		PeriodLabel: "2023-10",
		Entries: []report.CostEntry{
			{DeviceID: expensiveID, Name: "Heater", Category: "sockets", RatedPowerW: f(2000), EnergyKwh: 40, Cost: 40},
			{DeviceID: notableID, Name: "Dryer", Category: "sockets", EnergyKwh: 20, Cost: 20},
			{DeviceID: cheapID, Name: "Router", Category: "sockets", EnergyKwh: 2, Cost: 2},
		},
		CategoryTotals: []report.CategoryTotal{{Category: "sockets", Cost: 62}},
		TotalCost:      62,
	}

	advisor := New(fakeReports{report: monthly}, DefaultConfig())

	got, err := advisor.MonthlyAdvice(context.Background())
	require.NoError(t, err)

	var deviceAdvices []Advice
	for _, advice := range got {
		if advice.Type == TypeDevice {
			deviceAdvices = append(deviceAdvices, advice)
		}
	}
	require.Len(t, deviceAdvices, 2)

	// ordered most expensive first
	assert.Equal(t, SeverityWarning, deviceAdvices[0].Severity)
	require.NotNil(t, deviceAdvices[0].DeviceID)
	assert.Equal(t, expensiveID, *deviceAdvices[0].DeviceID)
	// heater: 2kW * 30h * rate 1.0 = 60 of quick-win savings
	require.NotNil(t, deviceAdvices[0].EstimatedSavings)
	assert.InDelta(t, 60, *deviceAdvices[0].EstimatedSavings, 1e-9)

	assert.Equal(t, SeverityInfo, deviceAdvices[1].Severity)
	assert.Nil(t, deviceAdvices[1].EstimatedSavings)
}

func TestMonthlyAdviceReportError(t *testing.T) {
	advisor := New(fakeReports{err: errors.New("catalog down")}, DefaultConfig())

	_, err := advisor.MonthlyAdvice(context.Background())
	assert.Error(t, err)
}
