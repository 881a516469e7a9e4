package model

import "time"

// defaultBaseRate is charged per 15-minute interval when a location
// has no configured rate for a vehicle class.
const defaultBaseRate = 15

// Pricing holds the per-15-minute rate for every vehicle class a
// location charges. The set of classes is closed; there is no
// open-ended rate table.
type Pricing struct {
	Car   int `gorm:"not null;default:0" json:"car"`
	Bike  int `gorm:"not null;default:0" json:"bike"`
	Bus   int `gorm:"not null;default:0" json:"bus"`
	Van   int `gorm:"not null;default:0" json:"van"`
	Truck int `gorm:"not null;default:0" json:"truck"`
}

// DefaultPricing returns the rates applied when an operator creates a
// location without an explicit price table.
func DefaultPricing() Pricing {
	return Pricing{Car: 15, Bike: 10, Bus: 25, Van: 20, Truck: 22}
}

// RateFor returns the base rate for a vehicle class, falling back to
// the fixed default when the class has no configured rate.
func (p Pricing) RateFor(vt VehicleType) int {
	var rate int
	switch vt {
	case VehicleCar:
		rate = p.Car
	case VehicleBike:
		rate = p.Bike
	case VehicleBus:
		rate = p.Bus
	case VehicleVan:
		rate = p.Van
	case VehicleTruck:
		rate = p.Truck
	}
	if rate <= 0 {
		return defaultBaseRate
	}
	return rate
}

// Location represents a parking site and the aggregate view of its
// slot pool. TotalSlots and AvailableSlots are denormalized counters
// owned by the availability ledger; nothing else may write them.
type Location struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	LocationCode   string    `gorm:"uniqueIndex;size:64;not null" json:"locationCode"`
	Name           string    `gorm:"size:256;not null" json:"name"`
	Address        string    `gorm:"size:512;not null" json:"address"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	Pricing        Pricing   `gorm:"embedded;embeddedPrefix:price_" json:"pricing"`
	TotalSlots     int       `gorm:"not null;default:0" json:"totalSlots"`
	AvailableSlots int       `gorm:"not null;default:0" json:"availableSlots"`
	CreatedByID    int64     `gorm:"index" json:"createdBy"`
	IsActive       bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Slots []Slot `gorm:"foreignKey:LocationID" json:"-"`
}
