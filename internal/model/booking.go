package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingUpcoming  BookingStatus = "upcoming"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no-show"
)

// Terminal reports whether no further status transition is permitted.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingNoShow
}

// Payment states. Payment is modeled as settled at booking time; there
// is no separate authorization step.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentRefunded  = "refunded"
)

// Booking represents one reservation of one slot by one user over a
// time window. The requested window is StartTime..EndTime; the
// timer-driven window is ActualStartTime..ActualEndTime.
type Booking struct {
	ID              int64         `gorm:"primaryKey" json:"id"`
	BookingID       string        `gorm:"uniqueIndex;size:64;not null" json:"bookingId"`
	UserID          int64         `gorm:"index:idx_booking_user_status;not null" json:"userId"`
	SlotID          int64         `gorm:"index;not null" json:"slotId"`
	LocationID      int64         `gorm:"index;not null" json:"locationId"`
	VehicleNumber   string        `gorm:"size:32;not null" json:"vehicleNumber"`
	VehicleType     VehicleType   `gorm:"size:16;not null" json:"vehicleType"`
	BookingDate     time.Time     `gorm:"not null" json:"bookingDate"`
	StartTime       time.Time     `gorm:"not null" json:"startTime"`
	EndTime         time.Time     `gorm:"not null" json:"endTime"`
	ActualStartTime *time.Time    `json:"actualStartTime"`
	ActualEndTime   *time.Time    `json:"actualEndTime"`
	DurationMinutes int           `gorm:"not null;default:0" json:"duration"`
	BaseAmount      int           `gorm:"not null" json:"baseAmount"`
	TotalAmount     int           `gorm:"not null" json:"totalAmount"`
	PaymentStatus   string        `gorm:"size:16;not null;default:pending" json:"paymentStatus"`
	PaymentID       string        `gorm:"size:64" json:"paymentId"`
	Status          BookingStatus `gorm:"size:16;not null;default:upcoming;index:idx_booking_user_status" json:"bookingStatus"`
	TimerStarted    bool          `gorm:"not null;default:false" json:"timerStarted"`
	TimerEndedAt    *time.Time    `json:"timerEndedAt"`
	CancelReason    string        `gorm:"size:256" json:"cancellationReason"`
	CancelledAt     *time.Time    `json:"cancelledAt"`
	CreatedAt       time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updatedAt"`

	// Associations
	Slot     Slot     `json:"-"`
	Location Location `json:"-"`
	User     User     `json:"-"`
}
