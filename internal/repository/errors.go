// Package repository defines sentinel error values shared across the
// repositories. Higher layers use errors.Is to map these onto HTTP
// responses or engine-level rejections without inspecting SQL errors
// directly.
package repository

import "errors"

// ErrSessionNotFound is returned when a session row does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrReservationNotFound is returned when a reservation row does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into a 403 or, for
// reservations, a 404 to avoid leaking existence.
var ErrForbidden = errors.New("forbidden")

// ErrDuplicateActive is returned when inserting a reservation violates the
// single-active-reservation uniqueness constraint on (session, holder).
// The engine checks for duplicates before inserting; this sentinel covers
// the storage-level constraint acting as defense in depth.
var ErrDuplicateActive = errors.New("active reservation already exists")

// ErrOccupancyBound is returned when an occupancy adjustment would leave
// the counter outside [0, capacity]. The guarded UPDATE refuses the write,
// keeping the invariant intact even if a caller got its bookkeeping wrong.
var ErrOccupancyBound = errors.New("occupancy adjustment out of bounds")
