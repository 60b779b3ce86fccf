// Package repository stores the locally-owned state - manual device records and the
// current tariff - in a SQLite database on the local file system.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pbak/homeenergy/device"
	"github.com/pbak/homeenergy/tariff"
)

// ErrDeviceNotFound is returned when the requested manual device does not exist.
var ErrDeviceNotFound = errors.New("device not found")

type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(&StoredManualDevice{}, &StoredTariff{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// CreateManualDevice validates and stores a new manual device record.
func (r *Repository) CreateManualDevice(ctx context.Context, d device.Device) error {
	d.Kind = device.KindManual
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validate device: %w", err)
	}
	stored := newStoredManualDevice(d)
	result := r.db.WithContext(ctx).Create(&stored)
	return result.Error
}

// UpdateManualDevice replaces the stored record for the given device.
func (r *Repository) UpdateManualDevice(ctx context.Context, d device.Device) error {
	d.Kind = device.KindManual
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validate device: %w", err)
	}
	result := r.db.WithContext(ctx).
		Model(&StoredManualDevice{ID: d.ID.String()}).
		Select("Name", "Category", "RatedPowerW", "Description").
		Updates(newStoredManualDevice(d))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// DeleteManualDevice removes the record for the given device id.
func (r *Repository) DeleteManualDevice(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&StoredManualDevice{ID: id.String()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// ListManualDevices returns all stored manual devices, ordered by name.
func (r *Repository) ListManualDevices(ctx context.Context) ([]device.Device, error) {
	var stored []StoredManualDevice
	result := r.db.WithContext(ctx).Order("name asc").Find(&stored)
	if result.Error != nil {
		return nil, result.Error
	}

	devices := make([]device.Device, 0, len(stored))
	for _, s := range stored {
		d, err := s.toDevice()
		if err != nil {
			return nil, fmt.Errorf("convert stored device %s: %w", s.ID, err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// GetManualDevice returns the stored manual device with the given id.
func (r *Repository) GetManualDevice(ctx context.Context, id uuid.UUID) (device.Device, error) {
	var stored StoredManualDevice
	result := r.db.WithContext(ctx).First(&stored, "id = ?", id.String())
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return device.Device{}, ErrDeviceNotFound
	}
	if result.Error != nil {
		return device.Device{}, result.Error
	}
	return stored.toDevice()
}

// LoadTariff implements tariff.Store. It returns nil when no tariff has ever been saved.
func (r *Repository) LoadTariff(ctx context.Context) (*tariff.Tariff, error) {
	var stored StoredTariff
	result := r.db.WithContext(ctx).First(&stored, "id = ?", tariffRowID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	t := stored.toTariff()
	return &t, nil
}

// SaveTariff implements tariff.Store, replacing the single tariff row.
func (r *Repository) SaveTariff(ctx context.Context, t tariff.Tariff) error {
	stored := newStoredTariff(t)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&stored)
	return result.Error
}
