package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbak/homeenergy/device"
	"github.com/pbak/homeenergy/tariff"
)

func f(v float64) *float64 { return &v }

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	return repo
}

func TestManualDeviceCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	d := device.Device{
		ID:          uuid.New(),
		Name:        "Desk lamp",
		Category:    "lighting",
		RatedPowerW: f(9),
		Description: "lamp on the office desk",
	}
	require.NoError(t, repo.CreateManualDevice(ctx, d))

	got, err := repo.GetManualDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, device.KindManual, got.Kind)
	require.NotNil(t, got.RatedPowerW)
	assert.Equal(t, 9.0, *got.RatedPowerW)

	d.Name = "Desk lamp (moved)"
	d.RatedPowerW = f(12)
	require.NoError(t, repo.UpdateManualDevice(ctx, d))

	got, err = repo.GetManualDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp (moved)", got.Name)
	assert.Equal(t, 12.0, *got.RatedPowerW)

	listed, err := repo.ListManualDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, repo.DeleteManualDevice(ctx, d.ID))
	_, err = repo.GetManualDevice(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.ErrorIs(t, repo.DeleteManualDevice(ctx, d.ID), ErrDeviceNotFound)
}

func TestCreateManualDeviceRejectsInvalidRating(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.CreateManualDevice(context.Background(), device.Device{
		ID:          uuid.New(),
		Name:        "Broken",
		RatedPowerW: f(-5),
	})
	assert.Error(t, err)
}

func TestTariffRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	loaded, err := repo.LoadTariff(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	saved := tariff.Tariff{
		NetRatePerKwh:   f(1.00),
		GrossRatePerKwh: f(1.23),
		VatPercent:      f(23),
		UpdatedAt:       time.Now().UTC().Truncate(time.Second),
		Version:         1,
	}
	require.NoError(t, repo.SaveTariff(ctx, saved))

	// Saving again replaces the single row rather than adding one.
	saved.Version = 2
	saved.GrossRatePerKwh = f(1.30)
	require.NoError(t, repo.SaveTariff(ctx, saved))

	loaded, err = repo.LoadTariff(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(2), loaded.Version)
	require.NotNil(t, loaded.GrossRatePerKwh)
	assert.Equal(t, 1.30, *loaded.GrossRatePerKwh)
}
