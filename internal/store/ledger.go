package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"parkease-backend/internal/model"
)

// AvailabilityLedger keeps a location's total_slots/available_slots
// counters consistent with the true state of its slot pool. Counter
// writes are atomic SQL increments and must run inside the same
// transaction as the slot transition that triggers them; callers pass
// that transaction in.
type AvailabilityLedger struct {
	db *gorm.DB
}

// NewAvailabilityLedger creates a ledger bound to the given database.
func NewAvailabilityLedger(db *gorm.DB) *AvailabilityLedger {
	return &AvailabilityLedger{db: db}
}

// Snapshot returns the current counters for a location.
func (l *AvailabilityLedger) Snapshot(ctx context.Context, locationID int64) (total, available int, err error) {
	var loc model.Location
	if err := l.db.WithContext(ctx).Select("total_slots", "available_slots").
		First(&loc, locationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, 0, fmt.Errorf("%w: location %d", ErrNotFound, locationID)
		}
		return 0, 0, err
	}
	return loc.TotalSlots, loc.AvailableSlots, nil
}

// SlotBecameAvailable increments available_slots after a booked or
// maintenance slot returned to the pool.
func (l *AvailabilityLedger) SlotBecameAvailable(tx *gorm.DB, locationID int64) error {
	return l.adjust(tx, locationID, 0, 1)
}

// SlotBecameUnavailable decrements available_slots after a successful
// reservation or a maintenance hold.
func (l *AvailabilityLedger) SlotBecameUnavailable(tx *gorm.DB, locationID int64) error {
	return l.adjust(tx, locationID, 0, -1)
}

// SlotAdded bumps both counters for a newly created slot.
func (l *AvailabilityLedger) SlotAdded(tx *gorm.DB, locationID int64) error {
	return l.adjust(tx, locationID, 1, 1)
}

// SlotRemoved drops total_slots for a deactivated slot, and
// available_slots too when the slot was still offerable.
func (l *AvailabilityLedger) SlotRemoved(tx *gorm.DB, locationID int64, wasAvailable bool) error {
	availableDelta := 0
	if wasAvailable {
		availableDelta = -1
	}
	return l.adjust(tx, locationID, -1, availableDelta)
}

func (l *AvailabilityLedger) adjust(tx *gorm.DB, locationID int64, totalDelta, availableDelta int) error {
	updates := map[string]any{}
	if totalDelta != 0 {
		updates["total_slots"] = gorm.Expr("total_slots + ?", totalDelta)
	}
	if availableDelta != 0 {
		updates["available_slots"] = gorm.Expr("available_slots + ?", availableDelta)
	}
	if len(updates) == 0 {
		return nil
	}

	res := tx.Model(&model.Location{}).Where("id = ?", locationID).UpdateColumns(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to adjust counters for location %d: %w", locationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: location %d", ErrNotFound, locationID)
	}
	return nil
}
