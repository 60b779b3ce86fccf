package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pbak/homeenergy/billing"
	"github.com/pbak/homeenergy/catalog"
	"github.com/pbak/homeenergy/device"
	"github.com/pbak/homeenergy/repository"
	"github.com/pbak/homeenergy/report"
	"github.com/pbak/homeenergy/tariff"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps the engine's sentinel errors onto HTTP status codes. Anything
// unrecognised is treated as an upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tariff.ErrNoTariffConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, tariff.ErrInvalidTariffValue),
		errors.Is(err, tariff.ErrInconsistentTariffInput),
		errors.Is(err, billing.ErrMissingRatedPower),
		errors.Is(err, billing.ErrInvalidUsageSpec):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrDeviceNotFound), errors.Is(err, repository.ErrDeviceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getTariff(w http.ResponseWriter, _ *http.Request) {
	current, err := s.tariffs.Current()
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, current)
}

func (s *Server) updateTariff(w http.ResponseWriter, r *http.Request) {
	var in tariff.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := s.tariffs.Update(r.Context(), in)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

// estimateDeviceCost prices a hypothetical usage of the device's rated power. Usage is
// given either as ?hours=N or as ?days=N&avgHoursPerDay=M.
func (s *Server) estimateDeviceCost(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(mux.Vars(r)["deviceId"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	spec, err := usageSpecFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	dev, err := s.deviceCat.Get(r.Context(), deviceID)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	current, err := s.tariffs.Current()
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	estimate, err := billing.EstimateCost(dev.RatedPowerW, spec, current)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, estimate)
}

func usageSpecFromQuery(r *http.Request) (billing.UsageSpec, error) {
	q := r.URL.Query()
	if hours := q.Get("hours"); hours != "" {
		h, err := strconv.ParseFloat(hours, 64)
		if err != nil {
			return billing.UsageSpec{}, err
		}
		return billing.HoursTotal(h), nil
	}

	days, err := strconv.Atoi(q.Get("days"))
	if err != nil {
		return billing.UsageSpec{}, err
	}
	avg, err := strconv.ParseFloat(q.Get("avgHoursPerDay"), 64)
	if err != nil {
		return billing.UsageSpec{}, err
	}
	return billing.DaysAveraged(days, avg), nil
}

// deviceReport returns a handler that builds a report for the given period scoped to a
// single device and returns that device's entry, or its skip reason if it could not be
// costed.
func (s *Server) deviceReport(kind report.PeriodKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, err := uuid.Parse(mux.Vars(r)["deviceId"])
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}

		rep, err := s.reports.Build(r.Context(), kind, report.Scope{DeviceID: &deviceID})
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}

		for _, entry := range rep.Entries {
			if entry.DeviceID == deviceID {
				s.writeJSON(w, http.StatusOK, entry)
				return
			}
		}
		for _, skipped := range rep.Skipped {
			if skipped.DeviceID == deviceID {
				s.writeJSON(w, http.StatusUnprocessableEntity, skipped)
				return
			}
		}
		s.writeError(w, http.StatusNotFound, catalog.ErrDeviceNotFound)
	}
}

func (s *Server) monthSummary(w http.ResponseWriter, r *http.Request) {
	scope := report.Scope{Category: r.URL.Query().Get("category")}
	rep, err := s.reports.Build(r.Context(), report.PeriodMonth, scope)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) monthlyAdvice(w http.ResponseWriter, r *http.Request) {
	advice, err := s.advisor.MonthlyAdvice(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, advice)
}

type manualDeviceInput struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	RatedPowerW *float64 `json:"ratedPowerW"`
	Description string   `json:"description"`
}

func (s *Server) listManualDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.repository.ListManualDevices(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, devices)
}

func (s *Server) createManualDevice(w http.ResponseWriter, r *http.Request) {
	var in manualDeviceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	dev := device.Device{
		ID:          uuid.New(),
		Kind:        device.KindManual,
		Name:        in.Name,
		Category:    in.Category,
		RatedPowerW: in.RatedPowerW,
		Description: in.Description,
	}
	if err := s.repository.CreateManualDevice(r.Context(), dev); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, dev)
}

func (s *Server) updateManualDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(mux.Vars(r)["deviceId"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var in manualDeviceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	dev := device.Device{
		ID:          deviceID,
		Kind:        device.KindManual,
		Name:        in.Name,
		Category:    in.Category,
		RatedPowerW: in.RatedPowerW,
		Description: in.Description,
	}
	if err := s.repository.UpdateManualDevice(r.Context(), dev); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, dev)
}

func (s *Server) deleteManualDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(mux.Vars(r)["deviceId"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.repository.DeleteManualDevice(r.Context(), deviceID); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
