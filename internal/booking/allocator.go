// Package booking implements the reservation state machine: creation
// through the allocator, and the timer-driven transitions through the
// lifecycle. Every mutating operation commits the booking row, the
// slot flip and the ledger adjustment as a single transaction.
package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"parkease-backend/internal/model"
	"parkease-backend/internal/pricing"
	"parkease-backend/internal/store"
)

// Allocator orchestrates booking creation: it verifies the slot, holds
// it atomically, prices the window and persists the booking. If the
// transaction fails anywhere after the reservation, the rollback
// returns the slot to the pool.
type Allocator struct {
	db    *gorm.DB
	slots *store.SlotStore
	now   func() time.Time
	newID func() string
}

// NewAllocator wires an allocator with the real clock and ID scheme.
func NewAllocator(db *gorm.DB, slots *store.SlotStore) *Allocator {
	return &Allocator{
		db:    db,
		slots: slots,
		now:   func() time.Time { return time.Now().UTC() },
		newID: generateBookingID,
	}
}

// WithClock overrides the clock, for tests.
func (a *Allocator) WithClock(now func() time.Time) *Allocator {
	a.now = now
	return a
}

// generateBookingID produces a collision-resistant public booking
// code: timestamp plus a random suffix.
func generateBookingID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious
		// trouble; fall back to the timestamp alone.
		return fmt.Sprintf("BK%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("BK%d%s", time.Now().UnixNano(), strings.ToUpper(hex.EncodeToString(buf)))
}

// CreateRequest carries the validated input for a new booking.
type CreateRequest struct {
	UserID        int64
	SlotID        int64
	LocationID    int64
	VehicleNumber string
	VehicleType   model.VehicleType
	BookingDate   time.Time
	StartTime     time.Time
	EndTime       time.Time
}

// Create reserves the slot and persists the booking in one
// transaction. The slot hold is a conditional update, so of two
// concurrent calls for the same slot exactly one can succeed.
func (a *Allocator) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	if strings.TrimSpace(req.VehicleNumber) == "" {
		return nil, fmt.Errorf("%w: vehicle number is required", store.ErrValidation)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("%w: end time must be after start time", store.ErrValidation)
	}

	var booking model.Booking
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loc model.Location
		if err := tx.First(&loc, req.LocationID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: location %d", store.ErrNotFound, req.LocationID)
			}
			return err
		}

		slot, err := a.slots.ReserveTx(tx, req.SlotID, req.EndTime)
		if err != nil {
			return err
		}
		if slot.LocationID != loc.ID {
			return fmt.Errorf("%w: slot %d does not belong to location %d", store.ErrValidation, slot.ID, loc.ID)
		}
		if !slot.VehicleType.Accepts(req.VehicleType) {
			return fmt.Errorf("%w: slot %d does not accept vehicle type %q", store.ErrConflict, slot.ID, req.VehicleType)
		}

		now := a.now()
		duration := pricing.DurationMinutes(req.StartTime, req.EndTime)
		baseRate := loc.Pricing.RateFor(req.VehicleType)

		booking = model.Booking{
			BookingID:       a.newID(),
			UserID:          req.UserID,
			SlotID:          slot.ID,
			LocationID:      loc.ID,
			VehicleNumber:   strings.ToUpper(strings.TrimSpace(req.VehicleNumber)),
			VehicleType:     req.VehicleType,
			BookingDate:     req.BookingDate,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			DurationMinutes: duration,
			BaseAmount:      baseRate,
			TotalAmount:     pricing.Amount(baseRate, duration),
			PaymentStatus:   model.PaymentCompleted,
			PaymentID:       fmt.Sprintf("PAY%d", now.UnixNano()),
			Status:          model.BookingUpcoming,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
