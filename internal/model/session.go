package model

import "time"

// Session status values as stored in the `sessions.status` column.
const (
	SessionDraft     = "DRAFT"
	SessionPublished = "PUBLISHED"
	SessionCancelled = "CANCELLED"
)

// Session represents a bookable offering published by a creator.  It
// carries the fixed capacity and the live occupancy counter.  The
// occupancy column is written exclusively by the reservation engine;
// catalog edits never touch it.
//
// Fields:
//  ID              - UUID primary key.
//  CreatorID       - user who owns and edits the session.
//  Title           - short display title.
//  Description     - free-form description.
//  PriceCents      - price per slot in cents.
//  DurationMinutes - scheduled length of the session.
//  StartsAt        - when the session begins (nullable while drafting).
//  EndsAt          - when the session ends (nullable while drafting).
//  Capacity        - maximum number of participants, always >= 1.
//  Occupancy       - live count of active reservations, 0 <= Occupancy <= Capacity.
//  Status          - DRAFT, PUBLISHED or CANCELLED.
//  CreatedAt       - creation timestamp (UTC).
type Session struct {
	ID              string     // sessions.id
	CreatorID       string     // sessions.creator_id
	Title           string     // sessions.title
	Description     string     // sessions.description
	PriceCents      uint32     // sessions.price_cents
	DurationMinutes uint32     // sessions.duration_minutes
	StartsAt        *time.Time // sessions.starts_at (nullable)
	EndsAt          *time.Time // sessions.ends_at (nullable)
	Capacity        uint32     // sessions.capacity
	Occupancy       uint32     // sessions.occupancy
	Status          string     // sessions.status
	CreatedAt       time.Time  // sessions.created_at
}

// SpotsAvailable returns the number of free slots left on the session.
func (s *Session) SpotsAvailable() uint32 {
	if s.Occupancy >= s.Capacity {
		return 0
	}
	return s.Capacity - s.Occupancy
}
