package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pixelpaws-server/internal/model"
)

type DeviceStore struct{ db *gorm.DB }

func (s *Store) Devices() *DeviceStore { return &DeviceStore{db: s.DB} }

// DevicePatch describes a device write. A nil Visible keeps the stored flag.
// SelectedCatID is applied only when SetSelectedCat is true, so a nil
// SelectedCatID with SetSelectedCat clears the selection.
type DevicePatch struct {
	Visible        *bool
	SelectedCatID  *string
	SetSelectedCat bool
}

func (d *DeviceStore) Get(ctx context.Context, id string) (*model.Device, error) {
	var device model.Device
	if err := d.db.WithContext(ctx).First(&device, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &device, nil
}

// Replace overwrites both state fields, creating the device if needed.
func (d *DeviceStore) Replace(ctx context.Context, id string, visible bool, selectedCatID *string, now time.Time) (*model.Device, error) {
	return d.Patch(ctx, id, DevicePatch{
		Visible:        &visible,
		SelectedCatID:  selectedCatID,
		SetSelectedCat: true,
	}, now)
}

// Patch merges p into the stored device (or the default state when the
// device has no row yet) and upserts the result. A selected cat that does
// not exist yields ErrUnknownCat and leaves the row unchanged.
func (d *DeviceStore) Patch(ctx context.Context, id string, p DevicePatch, now time.Time) (*model.Device, error) {
	var out model.Device
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Device
		err := tx.First(&cur, "id = ?", id).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cur = model.Device{ID: id}
		case err != nil:
			return err
		}

		if p.Visible != nil {
			cur.Visible = *p.Visible
		}
		if p.SetSelectedCat {
			if p.SelectedCatID != nil {
				ok, err := catExists(tx, *p.SelectedCatID)
				if err != nil {
					return err
				}
				if !ok {
					return ErrUnknownCat
				}
			}
			cur.SelectedCatID = p.SelectedCatID
		}
		cur.UpdatedAt = now.UTC()

		if err := upsertDevice(tx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownCat) {
			return nil, err
		}
		return nil, fmt.Errorf("write device %s: %w", id, err)
	}
	return &out, nil
}

func upsertDevice(tx *gorm.DB, device model.Device) error {
	return tx.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"visible":         device.Visible,
				"selected_cat_id": device.SelectedCatID,
				"updated_at":      device.UpdatedAt,
			}),
		}).
		Create(&device).Error
}
