// Package pricing computes booking charges. Everything here is pure;
// rates come from the location's price table and time from the caller.
package pricing

import "time"

const (
	// IntervalMinutes is the billing granularity: every started
	// 15-minute interval is charged in full.
	IntervalMinutes = 15

	// ExtensionMinutes is the fixed length of one extension.
	ExtensionMinutes = 15

	// ExtensionFee is the flat charge for one extension, regardless
	// of vehicle type or location.
	ExtensionFee = 10
)

// DurationMinutes returns the length of the window in whole minutes,
// rounding any partial minute up. Windows that end at or before their
// start yield zero.
func DurationMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// Intervals returns the number of billing intervals covering the given
// duration.
func Intervals(durationMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}
	return (durationMinutes + IntervalMinutes - 1) / IntervalMinutes
}

// Amount charges the base rate for every started interval.
func Amount(baseRate, durationMinutes int) int {
	return baseRate * Intervals(durationMinutes)
}
