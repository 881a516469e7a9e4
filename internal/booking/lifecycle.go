package booking

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parkease-backend/internal/model"
	"parkease-backend/internal/pricing"
	"parkease-backend/internal/store"
)

// Notifier receives the location of a freed slot so that watchers can
// be told asynchronously. A nil Notifier disables notifications.
type Notifier interface {
	Dispatch(locationID int64)
}

// Lifecycle drives a booking from upcoming to a terminal state. Each
// transition loads the booking, checks ownership and state, and
// commits the status change together with any slot/ledger side effect.
type Lifecycle struct {
	db     *gorm.DB
	slots  *store.SlotStore
	notify Notifier
	now    func() time.Time
}

// NewLifecycle wires a lifecycle with the real clock.
func NewLifecycle(db *gorm.DB, slots *store.SlotStore, notify Notifier) *Lifecycle {
	return &Lifecycle{
		db:     db,
		slots:  slots,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock, for tests.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// Get returns a booking visible to the caller: its owner or an admin.
func (l *Lifecycle) Get(ctx context.Context, bookingID, actorID int64, actorRole string) (*model.Booking, error) {
	var b model.Booking
	if err := l.db.WithContext(ctx).First(&b, bookingID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: booking %d", store.ErrNotFound, bookingID)
		}
		return nil, err
	}
	if b.UserID != actorID && actorRole != model.RoleAdmin {
		return nil, fmt.Errorf("%w: booking %d belongs to another user", store.ErrForbidden, bookingID)
	}
	return &b, nil
}

// ListByUser returns a user's bookings, optionally filtered by status,
// newest first.
func (l *Lifecycle) ListByUser(ctx context.Context, userID int64, status model.BookingStatus) ([]model.Booking, error) {
	q := l.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bookings []model.Booking
	err := q.Order("created_at DESC").Find(&bookings).Error
	return bookings, err
}

// StartTimer marks actual occupancy begin. Only the owner may start,
// only once, and not before the booked window opens.
func (l *Lifecycle) StartTimer(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	var b model.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadBooking(tx, bookingID, &b); err != nil {
			return err
		}
		if b.UserID != actorID {
			return fmt.Errorf("%w: booking %d belongs to another user", store.ErrForbidden, bookingID)
		}
		if b.Status.Terminal() {
			return fmt.Errorf("%w: booking is %s", store.ErrInvalidTransition, b.Status)
		}
		if b.TimerStarted {
			return fmt.Errorf("%w: timer already started", store.ErrConflict)
		}
		now := l.now()
		if now.Before(b.StartTime) {
			return fmt.Errorf("%w: cannot start timer before booking start time", store.ErrConflict)
		}

		b.TimerStarted = true
		b.ActualStartTime = &now
		b.Status = model.BookingActive
		// The WHERE clause repeats the checked state, so of two
		// racing transitions only one can hit the row.
		res := tx.Model(&b).
			Where("status = ? AND timer_started = ?", model.BookingUpcoming, false).
			Updates(map[string]any{
				"timer_started":     true,
				"actual_start_time": now,
				"status":            model.BookingActive,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking state changed", store.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// StopTimer marks actual occupancy end, completes the booking and
// releases the slot. The recorded duration becomes the actual elapsed
// time; the quoted amount is intentionally left as charged at booking
// time.
func (l *Lifecycle) StopTimer(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	var b model.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadBooking(tx, bookingID, &b); err != nil {
			return err
		}
		if b.UserID != actorID {
			return fmt.Errorf("%w: booking %d belongs to another user", store.ErrForbidden, bookingID)
		}
		if !b.TimerStarted {
			return fmt.Errorf("%w: timer not started", store.ErrConflict)
		}
		if b.Status.Terminal() {
			return fmt.Errorf("%w: booking is already %s", store.ErrInvalidTransition, b.Status)
		}

		now := l.now()
		duration := b.DurationMinutes
		if b.ActualStartTime != nil {
			duration = pricing.DurationMinutes(*b.ActualStartTime, now)
		}

		b.ActualEndTime = &now
		b.TimerEndedAt = &now
		b.DurationMinutes = duration
		b.Status = model.BookingCompleted
		res := tx.Model(&b).
			Where("status = ? AND timer_started = ?", model.BookingActive, true).
			Updates(map[string]any{
				"actual_end_time":  now,
				"timer_ended_at":   now,
				"duration_minutes": duration,
				"status":           model.BookingCompleted,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking state changed", store.ErrConflict)
		}

		_, err := l.slots.ReleaseTx(tx, b.SlotID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.dispatch(b.LocationID)
	return &b, nil
}

// Cancel aborts an upcoming booking, refunds the payment and releases
// the slot. A booking whose timer has started can no longer be
// cancelled.
func (l *Lifecycle) Cancel(ctx context.Context, bookingID, actorID int64, reason string) (*model.Booking, error) {
	var b model.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadBooking(tx, bookingID, &b); err != nil {
			return err
		}
		if b.UserID != actorID {
			return fmt.Errorf("%w: booking %d belongs to another user", store.ErrForbidden, bookingID)
		}
		if b.TimerStarted {
			return fmt.Errorf("%w: cannot cancel after timer has started", store.ErrConflict)
		}
		if b.Status.Terminal() {
			return fmt.Errorf("%w: booking is already %s", store.ErrConflict, b.Status)
		}

		now := l.now()
		if reason == "" {
			reason = "User cancelled"
		}
		b.Status = model.BookingCancelled
		b.CancelReason = reason
		b.CancelledAt = &now
		b.PaymentStatus = model.PaymentRefunded
		res := tx.Model(&b).
			Where("status = ? AND timer_started = ?", model.BookingUpcoming, false).
			Updates(map[string]any{
				"status":         model.BookingCancelled,
				"cancel_reason":  reason,
				"cancelled_at":   now,
				"payment_status": model.PaymentRefunded,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking state changed", store.ErrConflict)
		}

		_, err := l.slots.ReleaseTx(tx, b.SlotID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.dispatch(b.LocationID)
	return &b, nil
}

// Extend pushes the booked window out by one extension interval for a
// flat fee. The slot stays booked; its next available time moves with
// the new end of the window.
func (l *Lifecycle) Extend(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	var b model.Booking
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadBooking(tx, bookingID, &b); err != nil {
			return err
		}
		if b.UserID != actorID {
			return fmt.Errorf("%w: booking %d belongs to another user", store.ErrForbidden, bookingID)
		}
		if !b.TimerStarted {
			return fmt.Errorf("%w: timer must be started to extend", store.ErrConflict)
		}
		if b.Status.Terminal() {
			return fmt.Errorf("%w: cannot extend a %s booking", store.ErrConflict, b.Status)
		}

		b.EndTime = b.EndTime.Add(pricing.ExtensionMinutes * time.Minute)
		b.TotalAmount += pricing.ExtensionFee
		b.DurationMinutes = pricing.DurationMinutes(b.StartTime, b.EndTime)
		res := tx.Model(&b).
			Where("status = ? AND timer_started = ?", model.BookingActive, true).
			Updates(map[string]any{
				"end_time":         b.EndTime,
				"total_amount":     b.TotalAmount,
				"duration_minutes": b.DurationMinutes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking state changed", store.ErrConflict)
		}

		return tx.Model(&model.Slot{}).
			Where("id = ?", b.SlotID).
			UpdateColumn("next_available_time", b.EndTime).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes a terminal booking. Only the owner or an admin may
// delete, and never while the booking is still live.
func (l *Lifecycle) Delete(ctx context.Context, bookingID, actorID int64, actorRole string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b model.Booking
		if err := loadBooking(tx, bookingID, &b); err != nil {
			return err
		}
		if b.UserID != actorID && actorRole != model.RoleAdmin {
			return fmt.Errorf("%w: booking %d belongs to another user", store.ErrForbidden, bookingID)
		}
		if !b.Status.Terminal() {
			return fmt.Errorf("%w: only completed or cancelled bookings can be deleted", store.ErrConflict)
		}
		res := tx.Where("status IN ?", []model.BookingStatus{
			model.BookingCompleted, model.BookingCancelled, model.BookingNoShow,
		}).Delete(&b)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: booking state changed", store.ErrConflict)
		}
		return nil
	})
}

func (l *Lifecycle) dispatch(locationID int64) {
	if l.notify != nil {
		l.notify.Dispatch(locationID)
	}
}

func loadBooking(tx *gorm.DB, bookingID int64, out *model.Booking) error {
	if err := tx.First(out, bookingID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: booking %d", store.ErrNotFound, bookingID)
		}
		return err
	}
	return nil
}
