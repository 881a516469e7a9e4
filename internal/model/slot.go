package model

import "time"

// SlotStatus is the occupancy state of a single parking slot.
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotBooked      SlotStatus = "booked"
	SlotMaintenance SlotStatus = "maintenance"
)

// Slot represents one physical parking space at a location. Status is
// mutated only through the slot store's transition operations.
type Slot struct {
	ID                int64       `gorm:"primaryKey" json:"id"`
	LocationID        int64       `gorm:"index;not null;uniqueIndex:idx_slot_no_location" json:"locationId"`
	SlotNo            string      `gorm:"size:32;not null;uniqueIndex:idx_slot_no_location" json:"slotNo"`
	Latitude          float64     `json:"latitude"`
	Longitude         float64     `json:"longitude"`
	Status            SlotStatus  `gorm:"size:16;not null;default:available" json:"status"`
	VehicleType       VehicleType `gorm:"size:16;not null;default:all" json:"vehicleType"`
	NextAvailableTime time.Time   `json:"nextAvailableTime"`
	IsActive          bool        `gorm:"not null;default:true" json:"isActive"`
	CreatedAt         time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt         time.Time   `gorm:"not null" json:"updatedAt"`

	// Associations
	Location Location `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
