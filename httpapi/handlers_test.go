package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbak/homeenergy/advisor"
	"github.com/pbak/homeenergy/catalog"
	"github.com/pbak/homeenergy/device"
	"github.com/pbak/homeenergy/repository"
	"github.com/pbak/homeenergy/report"
	"github.com/pbak/homeenergy/tariff"
	"github.com/pbak/homeenergy/telemetry"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

type stubMetered struct {
	devices []device.Device
}

func (s *stubMetered) ListMetered(_ context.Context) ([]device.Device, error) {
	return s.devices, nil
}

type stubMeasurements struct {
	samples map[uuid.UUID][]telemetry.PowerSample
}

func (s *stubMeasurements) Samples(_ context.Context, deviceID uuid.UUID, _ timeutils.Period) ([]telemetry.PowerSample, error) {
	return s.samples[deviceID], nil
}

func (s *stubMeasurements) Intervals(_ context.Context, _ uuid.UUID, _ timeutils.Period) ([]telemetry.UsageInterval, error) {
	return nil, nil
}

func newTestServer(t *testing.T, metered *stubMetered, measurements *stubMeasurements) *Server {
	t.Helper()

	repo, err := repository.New(":memory:")
	require.NoError(t, err)

	resolver := tariff.NewResolver(nil)
	deviceCat := catalog.New(metered, repo)
	reports := report.NewBuilder(deviceCat, measurements, resolver, report.Config{
		IntervalCategories: []string{"lighting"},
	})
	adv := advisor.New(reports, advisor.DefaultConfig())

	return NewServer("localhost:0", resolver, deviceCat, reports, adv, repo)
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	s.router().ServeHTTP(recorder, req)
	return recorder
}

func floatPtr(f float64) *float64 { return &f }

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

func TestTariffLifecycle(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "GET", "/api/tariff/settings", nil)
	assert.Equal(t, http.StatusPreconditionFailed, recorder.Code)

	recorder = doRequest(t, s, "PUT", "/api/tariff/settings", tariff.Input{
		NetRatePerKwh: floatPtr(0.80),
		VatPercent:    floatPtr(25),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var updated tariff.Tariff
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &updated))
	require.NotNil(t, updated.GrossRatePerKwh)
	assert.InDelta(t, 1.0, *updated.GrossRatePerKwh, 1e-9)
	assert.Equal(t, uint64(1), updated.Version)

	recorder = doRequest(t, s, "GET", "/api/tariff/settings", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUpdateTariffRejectsInvalidValues(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "PUT", "/api/tariff/settings", tariff.Input{
		NetRatePerKwh: floatPtr(-0.5),
		VatPercent:    floatPtr(25),
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateTariffRejectsEmptyBody(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "PUT", "/api/tariff/settings", tariff.Input{})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestManualDeviceCRUD(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "POST", "/api/manual-devices", manualDeviceInput{
		Name:        "Desk Lamp",
		Category:    "lighting",
		RatedPowerW: floatPtr(40),
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var created device.Device
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(t, device.KindManual, created.Kind)

	recorder = doRequest(t, s, "GET", "/api/manual-devices", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listed []device.Device
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Desk Lamp", listed[0].Name)

	recorder = doRequest(t, s, "PUT", "/api/manual-devices/"+created.ID.String(), manualDeviceInput{
		Name:        "Reading Lamp",
		Category:    "lighting",
		RatedPowerW: floatPtr(60),
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, s, "DELETE", "/api/manual-devices/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = doRequest(t, s, "GET", "/api/manual-devices", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	listed = nil
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestUpdateUnknownManualDevice(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "PUT", "/api/manual-devices/"+uuid.NewString(), manualDeviceInput{
		Name:        "Ghost",
		Category:    "sockets",
		RatedPowerW: floatPtr(10),
	})

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestEstimateDeviceCost(t *testing.T) {
	heaterID := uuid.New()
	metered := &stubMetered{devices: []device.Device{{
		ID:          heaterID,
		Kind:        device.KindMetered,
		Name:        "Heater",
		Category:    "heating",
		RatedPowerW: floatPtr(100),
	}}}
	s := newTestServer(t, metered, &stubMeasurements{})

	recorder := doRequest(t, s, "PUT", "/api/tariff/settings", tariff.Input{
		GrossRatePerKwh: floatPtr(1.0),
		VatPercent:      floatPtr(0),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, s, "GET", fmt.Sprintf("/api/cost/device/%s/estimate?hours=10", heaterID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var estimate struct {
		EnergyKwh float64 `json:"energyKwh"`
		Cost      float64 `json:"cost"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &estimate))
	assert.InDelta(t, 1.0, estimate.EnergyKwh, 1e-9)
	assert.InDelta(t, 1.0, estimate.Cost, 1e-9)

	recorder = doRequest(t, s, "GET", fmt.Sprintf("/api/cost/device/%s/estimate?days=30&avgHoursPerDay=4", heaterID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &estimate))
	assert.InDelta(t, 12.0, estimate.EnergyKwh, 1e-9)
}

func TestEstimateWithoutUsageSpec(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "GET", fmt.Sprintf("/api/cost/device/%s/estimate", uuid.New()), nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDeviceReportLastHour(t *testing.T) {
	socketID := uuid.New()
	metered := &stubMetered{devices: []device.Device{{
		ID:       socketID,
		Kind:     device.KindMetered,
		Name:     "Fridge Socket",
		Category: "sockets",
	}}}

	// Constant 600 W over the last 40 minutes of the window, sampled every 10 minutes.
	now := time.Now().UTC()
	var samples []telemetry.PowerSample
	for minutesAgo := 50; minutesAgo >= 10; minutesAgo -= 10 {
		samples = append(samples, telemetry.PowerSample{
			ID:       uuid.New(),
			DeviceID: socketID,
			Time:     now.Add(-time.Duration(minutesAgo) * time.Minute),
			PowerW:   floatPtr(600),
		})
	}
	s := newTestServer(t, metered, &stubMeasurements{samples: map[uuid.UUID][]telemetry.PowerSample{socketID: samples}})

	recorder := doRequest(t, s, "PUT", "/api/tariff/settings", tariff.Input{
		GrossRatePerKwh: floatPtr(1.0),
		VatPercent:      floatPtr(0),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, s, "GET", fmt.Sprintf("/api/cost/device/%s/last-hour", socketID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var entry report.CostEntry
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &entry))
	assert.Equal(t, socketID, entry.DeviceID)
	assert.InDelta(t, 0.4, entry.EnergyKwh, 1e-9)
	assert.InDelta(t, 0.4, entry.Cost, 1e-9)
	assert.Equal(t, "last-hour", entry.PeriodLabel)
}

func TestDeviceReportSkippedDevice(t *testing.T) {
	lampID := uuid.New()
	// An interval-tracked device with no rated power cannot be costed.
	metered := &stubMetered{devices: []device.Device{{
		ID:       lampID,
		Kind:     device.KindMetered,
		Name:     "Hall Light",
		Category: "lighting",
	}}}
	s := newTestServer(t, metered, &stubMeasurements{})

	recorder := doRequest(t, s, "PUT", "/api/tariff/settings", tariff.Input{
		GrossRatePerKwh: floatPtr(1.0),
		VatPercent:      floatPtr(0),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, s, "GET", fmt.Sprintf("/api/cost/device/%s/today", lampID), nil)
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var skipped report.SkippedDevice
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &skipped))
	assert.Equal(t, report.KindMissingRatedPower, skipped.ErrorKind)
}

func TestDeviceReportUnknownDevice(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "PUT", "/api/tariff/settings", tariff.Input{
		GrossRatePerKwh: floatPtr(1.0),
		VatPercent:      floatPtr(0),
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doRequest(t, s, "GET", fmt.Sprintf("/api/cost/device/%s/current-month", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestMonthSummaryWithoutTariffFails(t *testing.T) {
	s := newTestServer(t, &stubMetered{}, &stubMeasurements{})

	recorder := doRequest(t, s, "GET", "/api/cost/current-month/summary", nil)

	assert.Equal(t, http.StatusPreconditionFailed, recorder.Code)
}
