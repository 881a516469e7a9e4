package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parkease-backend/internal/model"
)

// SlotStore is the single source of truth for slot occupancy state. It
// is the only component permitted to flip a slot's status, and every
// status change that crosses the available boundary carries the
// matching ledger adjustment in the same transaction.
type SlotStore struct {
	db     *gorm.DB
	ledger *AvailabilityLedger
}

// NewSlotStore creates a slot store sharing the given ledger.
func NewSlotStore(db *gorm.DB, ledger *AvailabilityLedger) *SlotStore {
	return &SlotStore{db: db, ledger: ledger}
}

// DB exposes the underlying handle for read-only presentation queries.
func (s *SlotStore) DB() *gorm.DB { return s.db }

// Get returns a slot by ID regardless of its state.
func (s *SlotStore) Get(ctx context.Context, slotID int64) (*model.Slot, error) {
	var slot model.Slot
	if err := s.db.WithContext(ctx).First(&slot, slotID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
		}
		return nil, err
	}
	return &slot, nil
}

// ListByLocation returns all active slots at a location ordered by
// slot number.
func (s *SlotStore) ListByLocation(ctx context.Context, locationID int64) ([]model.Slot, error) {
	var slots []model.Slot
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND is_active = ?", locationID, true).
		Order("slot_no").
		Find(&slots).Error
	return slots, err
}

// AvailableForWindow returns the active slots that can be offered for
// a reservation starting at the given time.
func (s *SlotStore) AvailableForWindow(ctx context.Context, locationID int64, start time.Time) ([]model.Slot, error) {
	var slots []model.Slot
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND status = ? AND is_active = ? AND next_available_time <= ?",
			locationID, model.SlotAvailable, true, start).
		Order("slot_no").
		Find(&slots).Error
	return slots, err
}

// Reserve atomically transitions a slot from available to booked and
// records when it frees up again. The status guard in the UPDATE is
// what prevents two concurrent reservations from both succeeding.
func (s *SlotStore) Reserve(ctx context.Context, slotID int64, until time.Time) (*model.Slot, error) {
	var slot *model.Slot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.ReserveTx(tx, slotID, until)
		return err
	})
	return slot, err
}

// ReserveTx is Reserve running inside a caller-owned transaction, so
// the booking layer can commit the slot flip, the ledger decrement and
// the booking row as one unit.
func (s *SlotStore) ReserveTx(tx *gorm.DB, slotID int64, until time.Time) (*model.Slot, error) {
	res := tx.Model(&model.Slot{}).
		Where("id = ? AND status = ? AND is_active = ?", slotID, model.SlotAvailable, true).
		Updates(map[string]any{
			"status":              model.SlotBooked,
			"next_available_time": until,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to reserve slot %d: %w", slotID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the slot does not exist or it lost the race.
		var count int64
		if err := tx.Model(&model.Slot{}).Where("id = ?", slotID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
		}
		return nil, ErrSlotUnavailable
	}

	var slot model.Slot
	if err := tx.First(&slot, slotID).Error; err != nil {
		return nil, err
	}
	if err := s.ledger.SlotBecameUnavailable(tx, slot.LocationID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Release transitions a booked slot back to available. Releasing a
// slot that is already available is a no-op success; a slot parked in
// maintenance stays blocked.
func (s *SlotStore) Release(ctx context.Context, slotID int64, at time.Time) (*model.Slot, error) {
	var slot *model.Slot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.ReleaseTx(tx, slotID, at)
		return err
	})
	return slot, err
}

// ReleaseTx is Release inside a caller-owned transaction.
func (s *SlotStore) ReleaseTx(tx *gorm.DB, slotID int64, at time.Time) (*model.Slot, error) {
	res := tx.Model(&model.Slot{}).
		Where("id = ? AND status = ?", slotID, model.SlotBooked).
		Updates(map[string]any{
			"status":              model.SlotAvailable,
			"next_available_time": at,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to release slot %d: %w", slotID, res.Error)
	}

	var slot model.Slot
	if err := tx.First(&slot, slotID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
		}
		return nil, err
	}
	if res.RowsAffected == 0 {
		// Idempotent: already available, or held in maintenance.
		return &slot, nil
	}
	if err := s.ledger.SlotBecameAvailable(tx, slot.LocationID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// SetMaintenance places a slot into, or takes it out of, maintenance.
// A booked slot may be flagged while occupied; it then stays blocked
// after the booking releases it.
func (s *SlotStore) SetMaintenance(ctx context.Context, slotID int64, on bool) (*model.Slot, error) {
	var slot model.Slot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&slot, slotID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
			}
			return err
		}

		target := model.SlotMaintenance
		if !on {
			if slot.Status != model.SlotMaintenance {
				return nil
			}
			target = model.SlotAvailable
		}
		if slot.Status == target {
			return nil
		}

		oldStatus := slot.Status
		if err := tx.Model(&slot).UpdateColumn("status", target).Error; err != nil {
			return err
		}
		slot.Status = target

		switch {
		case oldStatus == model.SlotAvailable && target != model.SlotAvailable:
			return s.ledger.SlotBecameUnavailable(tx, slot.LocationID)
		case oldStatus != model.SlotAvailable && target == model.SlotAvailable:
			return s.ledger.SlotBecameAvailable(tx, slot.LocationID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Deactivate soft-deletes a slot. A slot that is currently booked
// cannot be removed.
func (s *SlotStore) Deactivate(ctx context.Context, slotID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot model.Slot
		if err := tx.First(&slot, slotID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
			}
			return err
		}
		if !slot.IsActive {
			return nil
		}
		if slot.Status == model.SlotBooked {
			return fmt.Errorf("%w: slot %d is currently booked", ErrConflict, slot.ID)
		}

		if err := tx.Model(&slot).UpdateColumn("is_active", false).Error; err != nil {
			return err
		}
		return s.ledger.SlotRemoved(tx, slot.LocationID, slot.Status == model.SlotAvailable)
	})
}

// DeactivateLocation soft-deletes a location together with its slot
// pool and zeroes the counters. A location with a booked slot cannot
// be removed.
func (s *SlotStore) DeactivateLocation(ctx context.Context, locationID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loc model.Location
		if err := tx.First(&loc, locationID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: location %d", ErrNotFound, locationID)
			}
			return err
		}

		var booked int64
		if err := tx.Model(&model.Slot{}).
			Where("location_id = ? AND is_active = ? AND status = ?", locationID, true, model.SlotBooked).
			Count(&booked).Error; err != nil {
			return err
		}
		if booked > 0 {
			return fmt.Errorf("%w: location %d has booked slots", ErrConflict, locationID)
		}

		var slots []model.Slot
		if err := tx.Where("location_id = ? AND is_active = ?", locationID, true).Find(&slots).Error; err != nil {
			return err
		}
		for _, slot := range slots {
			if err := tx.Model(&slot).UpdateColumn("is_active", false).Error; err != nil {
				return err
			}
			if err := s.ledger.SlotRemoved(tx, locationID, slot.Status == model.SlotAvailable); err != nil {
				return err
			}
		}

		return tx.Model(&loc).UpdateColumn("is_active", false).Error
	})
}

// Create registers a new slot and bumps the location counters in the
// same transaction.
func (s *SlotStore) Create(ctx context.Context, slot *model.Slot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loc model.Location
		if err := tx.First(&loc, slot.LocationID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: location %d", ErrNotFound, slot.LocationID)
			}
			return err
		}

		var count int64
		if err := tx.Model(&model.Slot{}).
			Where("location_id = ? AND slot_no = ?", slot.LocationID, slot.SlotNo).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: slot number %q already exists at location %d", ErrConflict, slot.SlotNo, slot.LocationID)
		}

		slot.Status = model.SlotAvailable
		slot.IsActive = true
		if err := tx.Create(slot).Error; err != nil {
			return fmt.Errorf("failed to create slot: %w", err)
		}
		return s.ledger.SlotAdded(tx, slot.LocationID)
	})
}

// UpdateMeta changes slot metadata that does not affect occupancy.
type UpdateMeta struct {
	SlotNo            *string
	Latitude          *float64
	Longitude         *float64
	VehicleType       *model.VehicleType
	NextAvailableTime *time.Time
}

// Update applies metadata changes to a slot. Occupancy status is
// deliberately not settable here.
func (s *SlotStore) Update(ctx context.Context, slotID int64, meta UpdateMeta) (*model.Slot, error) {
	var slot model.Slot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&slot, slotID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
			}
			return err
		}

		updates := map[string]any{}
		if meta.SlotNo != nil {
			updates["slot_no"] = *meta.SlotNo
		}
		if meta.Latitude != nil {
			updates["latitude"] = *meta.Latitude
		}
		if meta.Longitude != nil {
			updates["longitude"] = *meta.Longitude
		}
		if meta.VehicleType != nil {
			updates["vehicle_type"] = *meta.VehicleType
		}
		if meta.NextAvailableTime != nil {
			updates["next_available_time"] = *meta.NextAvailableTime
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&slot).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update slot %d: %w", slotID, err)
		}
		return tx.First(&slot, slotID).Error
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
