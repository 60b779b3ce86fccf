package measurement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/pbak/homeenergy/supabase"
	"github.com/pbak/homeenergy/telemetry"
	timeutils "github.com/pbak/homeenergy/time_utils"
)

const (
	samplesTable   = "energy_measurements"
	intervalsTable = "lighting_usage"
)

// SupabaseStore reads measurement rows from the Supabase data platform.
type SupabaseStore struct {
	client *supabase.Client
}

func NewSupabaseStore(client *supabase.Client) *SupabaseStore {
	return &SupabaseStore{client: client}
}

// sampleRow holds the json encoding schema for a power sample row in supabase.
type sampleRow struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Time      time.Time `json:"measured_at"`
	PowerW    *float64  `json:"power_w"`
	EnergyKwh *float64  `json:"energy_kwh"`
}

// intervalRow holds the json encoding schema for a usage interval row in supabase.
type intervalRow struct {
	ID        string     `json:"id"`
	DeviceID  string     `json:"device_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

func (s *SupabaseStore) Samples(ctx context.Context, deviceID uuid.UUID, window timeutils.Period) ([]telemetry.PowerSample, error) {
	var raw []map[string]interface{}
	err := s.client.Select(ctx, samplesTable, []supabase.Filter{
		supabase.Eq("device_id", deviceID.String()),
		supabase.Gte("measured_at", window.Start.Format(time.RFC3339)),
		supabase.Lt("measured_at", window.End.Format(time.RFC3339)),
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}

	samples := make([]telemetry.PowerSample, 0, len(raw))
	for _, rowMap := range raw {
		var row sampleRow
		if err := decodeRow(rowMap, &row); err != nil {
			return nil, fmt.Errorf("decode sample row: %w", err)
		}
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("parse sample id: %w", err)
		}
		samples = append(samples, telemetry.PowerSample{
			ID:                  id,
			DeviceID:            deviceID,
			Time:                row.Time,
			PowerW:              row.PowerW,
			CumulativeEnergyKwh: row.EnergyKwh,
		})
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
	return samples, nil
}

func (s *SupabaseStore) Intervals(ctx context.Context, deviceID uuid.UUID, window timeutils.Period) ([]telemetry.UsageInterval, error) {
	var raw []map[string]interface{}
	err := s.client.Select(ctx, intervalsTable, []supabase.Filter{
		supabase.Eq("device_id", deviceID.String()),
		supabase.Gte("started_at", window.Start.Format(time.RFC3339)),
		supabase.Lt("started_at", window.End.Format(time.RFC3339)),
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}

	intervals := make([]telemetry.UsageInterval, 0, len(raw))
	for _, rowMap := range raw {
		var row intervalRow
		if err := decodeRow(rowMap, &row); err != nil {
			return nil, fmt.Errorf("decode interval row: %w", err)
		}
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("parse interval id: %w", err)
		}
		intervals = append(intervals, telemetry.UsageInterval{
			ID:        id,
			DeviceID:  deviceID,
			StartedAt: row.StartedAt,
			EndedAt:   row.EndedAt,
		})
	}

	sort.SliceStable(intervals, func(i, j int) bool { return intervals[i].StartedAt.Before(intervals[j].StartedAt) })
	return intervals, nil
}

// decodeRow converts the given generic row map from postgrest into a concrete row struct,
// parsing RFC3339 timestamps along the way.
func decodeRow(rowMap map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     out,
		TagName:    "json",
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(rowMap)
}
