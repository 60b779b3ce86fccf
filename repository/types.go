package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/pbak/homeenergy/device"
	"github.com/pbak/homeenergy/tariff"
)

// StoredManualDevice represents a user-declared device that is persisted to the SQLite database.
type StoredManualDevice struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Category    string
	RatedPowerW *float64
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StoredTariff represents the single current tariff row. There is only ever one row, with
// a fixed primary key; updates replace it wholesale.
type StoredTariff struct {
	ID              uint `gorm:"primaryKey"`
	NetRatePerKwh   *float64
	GrossRatePerKwh *float64
	VatPercent      *float64
	UpdatedAt       time.Time
	Version         uint64
}

const tariffRowID = 1

func newStoredManualDevice(d device.Device) StoredManualDevice {
	return StoredManualDevice{
		ID:          d.ID.String(),
		Name:        d.Name,
		Category:    d.Category,
		RatedPowerW: d.RatedPowerW,
		Description: d.Description,
	}
}

func (s StoredManualDevice) toDevice() (device.Device, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return device.Device{}, err
	}
	return device.Device{
		ID:          id,
		Kind:        device.KindManual,
		Name:        s.Name,
		Category:    s.Category,
		RatedPowerW: s.RatedPowerW,
		Description: s.Description,
	}, nil
}

func newStoredTariff(t tariff.Tariff) StoredTariff {
	return StoredTariff{
		ID:              tariffRowID,
		NetRatePerKwh:   t.NetRatePerKwh,
		GrossRatePerKwh: t.GrossRatePerKwh,
		VatPercent:      t.VatPercent,
		UpdatedAt:       t.UpdatedAt,
		Version:         t.Version,
	}
}

func (s StoredTariff) toTariff() tariff.Tariff {
	return tariff.Tariff{
		NetRatePerKwh:   s.NetRatePerKwh,
		GrossRatePerKwh: s.GrossRatePerKwh,
		VatPercent:      s.VatPercent,
		UpdatedAt:       s.UpdatedAt,
		Version:         s.Version,
	}
}
