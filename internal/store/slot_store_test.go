package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface.
func (a Any) Match(v driver.Value) bool { return true }

func TestSlotStore_Reserve(t *testing.T) {
	until := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedErr      error
	}{
		{
			name: "available slot is booked and counter decremented",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				// SET next_available_time, status, updated_at;
				// WHERE id, status, is_active.
				mock.ExpectExec(`UPDATE "slots" SET`).
					WithArgs(Any{}, Any{}, Any{}, Any{}, Any{}, Any{}).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`SELECT \* FROM "slots"`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "slot_no", "status"}).
						AddRow(7, 3, "A1", "booked"))
				mock.ExpectExec(`UPDATE "locations" SET "available_slots"=available_slots`).
					WithArgs(Any{}, Any{}).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			expectedErr: nil,
		},
		{
			name: "conditional update misses, reservation conflicts",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE "slots" SET`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "slots"`)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectRollback()
			},
			expectedErr: ErrSlotUnavailable,
		},
		{
			name: "unknown slot",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE "slots" SET`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "slots"`)).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectRollback()
			},
			expectedErr: ErrNotFound,
		},
		{
			name: "counter update failure rolls the slot flip back",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE "slots" SET`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`SELECT \* FROM "slots"`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "slot_no", "status"}).
						AddRow(7, 3, "A1", "booked"))
				mock.ExpectExec(`UPDATE "locations" SET "available_slots"=available_slots`).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			expectedErr: errors.New("connection reset"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			ledger := NewAvailabilityLedger(gormDB)
			slots := NewSlotStore(gormDB, ledger)

			tc.mockExpectations(mock)

			slot, err := slots.Reserve(context.Background(), 7, until)

			if tc.expectedErr != nil {
				require.Error(t, err)
				var sentinel error
				switch {
				case errors.Is(tc.expectedErr, ErrSlotUnavailable):
					sentinel = ErrSlotUnavailable
				case errors.Is(tc.expectedErr, ErrNotFound):
					sentinel = ErrNotFound
				}
				if sentinel != nil {
					assert.ErrorIs(t, err, sentinel)
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, slot)
				assert.Equal(t, int64(7), slot.ID)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlotStore_ReserveConflictIsConflict(t *testing.T) {
	// Handlers branch on ErrConflict; the unavailable sentinel must
	// match it.
	assert.ErrorIs(t, ErrSlotUnavailable, ErrConflict)
}
