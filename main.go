package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pbak/homeenergy/advisor"
	"github.com/pbak/homeenergy/catalog"
	"github.com/pbak/homeenergy/config"
	"github.com/pbak/homeenergy/httpapi"
	"github.com/pbak/homeenergy/measurement"
	"github.com/pbak/homeenergy/report"
	"github.com/pbak/homeenergy/repository"
	"github.com/pbak/homeenergy/supabase"
	"github.com/pbak/homeenergy/tariff"
)

func main() {

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	slog.Info("Starting home energy service...")

	conf, err := config.Read(*configPath)
	if err != nil {
		slog.Error("Failed to read config", "error", err)
		return
	}

	supabaseKey := os.Getenv("SUPABASE_KEY")
	if supabaseKey == "" {
		slog.Error("SUPABASE_KEY environment variable is not set")
		return
	}

	location, err := time.LoadLocation(conf.Reports.Timezone)
	if err != nil {
		slog.Error("Failed to load time location", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	repo, err := repository.New(conf.Repository.SqlitePath)
	if err != nil {
		slog.Error("Failed to open local repository", "error", err)
		return
	}

	supabaseClient := supabase.New(
		conf.MeasurementPlatform.Supabase.Url,
		supabaseKey,
		conf.MeasurementPlatform.Supabase.Schema,
	)
	measurements := measurement.NewSupabaseStore(supabaseClient)
	deviceCat := catalog.New(catalog.NewSupabaseMeteredSource(supabaseClient), repo)

	tariffs := tariff.NewResolver(repo)
	if err := tariffs.Load(ctx); err != nil {
		slog.Error("Failed to load stored tariff", "error", err)
		return
	}

	reports := report.NewBuilder(deviceCat, measurements, tariffs, report.Config{
		IntervalCategories: conf.Reports.IntervalCategories,
		MaxSampleGap:       time.Duration(conf.Reports.MaxSampleGapSecs) * time.Second,
		DeviceTimeout:      time.Duration(conf.Reports.DeviceTimeoutSecs) * time.Second,
		Location:           location,
	})

	adv := advisor.New(reports, advisorConfig(conf.Advisor))

	server := httpapi.NewServer(conf.HTTP.ListenAddr, tariffs, deviceCat, reports, adv, repo)
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(ctx)
	}()

	// wait for a ctrl-c interrupt before exiting
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	select {
	case <-signalChan:
		cancel()
		if err := <-serverDone; err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
	case err := <-serverDone:
		slog.Error("HTTP server stopped", "error", err)
		cancel()
	}

	slog.Info("Exiting")
}

// advisorConfig overlays the configured thresholds, where set, onto the defaults.
func advisorConfig(conf *config.AdvisorConfig) advisor.Config {
	advConf := advisor.DefaultConfig()
	if conf == nil {
		return advConf
	}
	if conf.LightingShareThreshold > 0 {
		advConf.LightingShareThreshold = conf.LightingShareThreshold
	}
	if conf.SocketsShareThreshold > 0 {
		advConf.SocketsShareThreshold = conf.SocketsShareThreshold
	}
	if conf.HighDeviceCost > 0 {
		advConf.HighDeviceCost = conf.HighDeviceCost
	}
	if conf.MediumDeviceCost > 0 {
		advConf.MediumDeviceCost = conf.MediumDeviceCost
	}
	if conf.QuickWinHours > 0 {
		advConf.QuickWinHours = conf.QuickWinHours
	}
	if conf.MinQuickWinSaving > 0 {
		advConf.MinQuickWinSaving = conf.MinQuickWinSaving
	}
	return advConf
}
