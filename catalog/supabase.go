package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/pbak/homeenergy/device"
	"github.com/pbak/homeenergy/supabase"
)

const devicesTable = "devices"

// SupabaseMeteredSource reads the metered device inventory that the measurement platform
// synchronises into Supabase.
type SupabaseMeteredSource struct {
	client *supabase.Client
}

func NewSupabaseMeteredSource(client *supabase.Client) *SupabaseMeteredSource {
	return &SupabaseMeteredSource{client: client}
}

// deviceRow holds the json encoding schema for a device row in supabase.
type deviceRow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	RatedPowerW *float64   `json:"rated_power_w"`
	Description string     `json:"description"`
	Online      bool       `json:"online"`
	LastSeen    *time.Time `json:"last_seen"`
}

func (s *SupabaseMeteredSource) ListMetered(ctx context.Context) ([]device.Device, error) {
	var raw []map[string]interface{}
	if err := s.client.Select(ctx, devicesTable, nil, &raw); err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}

	devices := make([]device.Device, 0, len(raw))
	for _, rowMap := range raw {
		var row deviceRow
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
			Result:     &row,
			TagName:    "json",
		})
		if err != nil {
			return nil, fmt.Errorf("create decoder: %w", err)
		}
		if err := decoder.Decode(rowMap); err != nil {
			return nil, fmt.Errorf("decode device row: %w", err)
		}

		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("parse device id: %w", err)
		}
		d := device.Device{
			ID:          id,
			Kind:        device.KindMetered,
			Name:        row.Name,
			Category:    row.Category,
			RatedPowerW: row.RatedPowerW,
			Description: row.Description,
			Online:      row.Online,
		}
		if row.LastSeen != nil {
			d.LastSeen = *row.LastSeen
		}
		devices = append(devices, d)
	}
	return devices, nil
}
