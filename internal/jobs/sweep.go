// Package jobs holds the scheduled background work: the no-show sweep
// that closes out upcoming bookings whose window passed with the timer
// never started.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"parkease-backend/internal/model"
	"parkease-backend/internal/store"
)

// Notifier matches the booking layer's notifier; freed slots are
// announced to watchers of the location.
type Notifier interface {
	Dispatch(locationID int64)
}

// Sweeper finds and finalizes no-show bookings.
type Sweeper struct {
	db     *gorm.DB
	slots  *store.SlotStore
	notify Notifier
	now    func() time.Time
}

// NewSweeper wires a sweeper with the real clock.
func NewSweeper(db *gorm.DB, slots *store.SlotStore, notify Notifier) *Sweeper {
	return &Sweeper{
		db:     db,
		slots:  slots,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// MarkNoShows moves every upcoming booking whose end time has passed
// without the timer ever starting to no-show and releases its slot.
// Each booking is finalized in its own transaction; a failure on one
// does not block the rest. Returns the number of bookings swept.
func (s *Sweeper) MarkNoShows(ctx context.Context) (int, error) {
	now := s.now()

	var candidates []model.Booking
	err := s.db.WithContext(ctx).
		Where("status = ? AND timer_started = ? AND end_time < ?", model.BookingUpcoming, false, now).
		Find(&candidates).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query no-show candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	swept := 0
	for _, b := range candidates {
		finalized := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Re-check the status under the transaction; the user
			// may have started the timer or cancelled meanwhile.
			res := tx.Model(&model.Booking{}).
				Where("id = ? AND status = ? AND timer_started = ?", b.ID, model.BookingUpcoming, false).
				UpdateColumn("status", model.BookingNoShow)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			if _, err := s.slots.ReleaseTx(tx, b.SlotID, now); err != nil {
				return err
			}
			finalized = true
			return nil
		})
		if err != nil {
			log.Printf("no-show sweep: failed to finalize booking %d: %v", b.ID, err)
			continue
		}
		if !finalized {
			continue
		}
		swept++
		if s.notify != nil {
			s.notify.Dispatch(b.LocationID)
		}
	}

	if swept > 0 {
		log.Printf("no-show sweep: moved %d bookings to no-show", swept)
	}
	return swept, nil
}

// Schedule registers the sweep on the given cron runner.
func (s *Sweeper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if _, err := s.MarkNoShows(context.Background()); err != nil {
			log.Printf("no-show sweep failed: %v", err)
		}
	})
}
