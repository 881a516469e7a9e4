package model

import "fmt"

// VehicleType is the closed set of vehicle classes a booking can carry.
type VehicleType string

const (
	VehicleCar   VehicleType = "car"
	VehicleBike  VehicleType = "bike"
	VehicleBus   VehicleType = "bus"
	VehicleVan   VehicleType = "van"
	VehicleTruck VehicleType = "truck"

	// VehicleAll is valid only on slots and means the slot accepts
	// any vehicle class.
	VehicleAll VehicleType = "all"
)

// ParseVehicleType validates a vehicle class supplied by a caller.
// "all" is not a bookable class and is rejected here.
func ParseVehicleType(s string) (VehicleType, error) {
	switch VehicleType(s) {
	case VehicleCar, VehicleBike, VehicleBus, VehicleVan, VehicleTruck:
		return VehicleType(s), nil
	}
	return "", fmt.Errorf("unknown vehicle type %q", s)
}

// ParseSlotVehicleType validates the vehicle class accepted by a slot,
// which additionally may be "all".
func ParseSlotVehicleType(s string) (VehicleType, error) {
	if VehicleType(s) == VehicleAll {
		return VehicleAll, nil
	}
	return ParseVehicleType(s)
}

// Accepts reports whether a slot with class t can take a vehicle of
// class vt.
func (t VehicleType) Accepts(vt VehicleType) bool {
	return t == VehicleAll || t == vt
}
