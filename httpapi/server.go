// Package httpapi exposes the cost engine to its callers over REST. The handlers are a
// thin translation layer: all numeric and temporal logic lives in the engine packages.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/pbak/homeenergy/advisor"
	"github.com/pbak/homeenergy/catalog"
	"github.com/pbak/homeenergy/repository"
	"github.com/pbak/homeenergy/report"
	"github.com/pbak/homeenergy/tariff"
)

// Server holds the engine components the handlers delegate to.
type Server struct {
	tariffs    *tariff.Resolver
	deviceCat  *catalog.Catalog
	reports    *report.Builder
	advisor    *advisor.Advisor
	repository *repository.Repository

	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(addr string, tariffs *tariff.Resolver, deviceCat *catalog.Catalog, reports *report.Builder, adv *advisor.Advisor, repo *repository.Repository) *Server {
	s := &Server{
		tariffs:    tariffs,
		deviceCat:  deviceCat,
		reports:    reports,
		advisor:    adv,
		repository: repo,
		logger:     slog.Default().With("component", "httpapi"),
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(os.Stdout, s.router()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")

	r.HandleFunc("/api/tariff/settings", s.getTariff).Methods("GET")
	r.HandleFunc("/api/tariff/settings", s.updateTariff).Methods("PUT")

	r.HandleFunc("/api/cost/device/{deviceId}/estimate", s.estimateDeviceCost).Methods("GET")
	r.HandleFunc("/api/cost/device/{deviceId}/current-month", s.deviceReport(report.PeriodMonth)).Methods("GET")
	r.HandleFunc("/api/cost/device/{deviceId}/today", s.deviceReport(report.PeriodDay)).Methods("GET")
	r.HandleFunc("/api/cost/device/{deviceId}/last-hour", s.deviceReport(report.PeriodLastHour)).Methods("GET")
	r.HandleFunc("/api/cost/current-month/summary", s.monthSummary).Methods("GET")

	r.HandleFunc("/api/advisor/advice", s.monthlyAdvice).Methods("GET")

	r.HandleFunc("/api/manual-devices", s.listManualDevices).Methods("GET")
	r.HandleFunc("/api/manual-devices", s.createManualDevice).Methods("POST")
	r.HandleFunc("/api/manual-devices/{deviceId}", s.updateManualDevice).Methods("PUT")
	r.HandleFunc("/api/manual-devices/{deviceId}", s.deleteManualDevice).Methods("DELETE")

	return r
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("HTTP API listening", "addr", s.httpServer.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
