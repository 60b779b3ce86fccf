package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type HTTPConfig struct {
	ListenAddr string `json:"listenAddr"`
}

type SupabaseConfig struct {
	Url string `json:"url"`
	// key is specified via env var
	Schema string `json:"schema"`
}

type MeasurementPlatformConfig struct {
	Supabase SupabaseConfig `json:"supabase"`
}

type RepositoryConfig struct {
	SqlitePath string `json:"sqlitePath"`
}

type ReportsConfig struct {
	// Timezone names the local calendar for month and day boundaries, e.g. "Europe/Warsaw".
	Timezone           string   `json:"timezone"`
	IntervalCategories []string `json:"intervalCategories"`
	MaxSampleGapSecs   int      `json:"maxSampleGapSecs"`
	DeviceTimeoutSecs  int      `json:"deviceTimeoutSecs"`
}

type AdvisorConfig struct {
	LightingShareThreshold float64 `json:"lightingShareThreshold"`
	SocketsShareThreshold  float64 `json:"socketsShareThreshold"`
	HighDeviceCost         float64 `json:"highDeviceCost"`
	MediumDeviceCost       float64 `json:"mediumDeviceCost"`
	QuickWinHours          float64 `json:"quickWinHours"`
	MinQuickWinSaving      float64 `json:"minQuickWinSaving"`
}

type Config struct {
	HTTP                HTTPConfig                `json:"http"`
	MeasurementPlatform MeasurementPlatformConfig `json:"measurementPlatform"`
	Repository          RepositoryConfig          `json:"repository"`
	Reports             ReportsConfig             `json:"reports"`
	Advisor             *AdvisorConfig            `json:"advisor"`
}

func Read(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	err = json.Unmarshal(content, &config)
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return config, nil
}
