// Package store owns all mutations of slot occupancy state and the
// per-location availability counters. The sentinel errors below are
// shared across the store and booking layers so that handlers can
// translate failure kinds into HTTP responses without string matching.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a slot, location, booking or user does
// not exist (or is soft-deleted where activity is required).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of
// the current state: a slot that is not available, a booking that is
// already terminal, a timer already started or not started.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller is neither the owner of the
// booking nor an administrator.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when an operation is attempted from
// a lifecycle state that does not permit it.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrValidation is returned for malformed input, such as a time window
// that ends before it starts.
var ErrValidation = errors.New("validation failed")

// ErrSlotUnavailable reports a failed compare-and-set reservation. It
// matches ErrConflict under errors.Is.
var ErrSlotUnavailable = fmt.Errorf("%w: slot is not available", ErrConflict)
