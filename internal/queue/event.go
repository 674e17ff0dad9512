// Package queue defines the messages exchanged over the broker and the
// publisher/consumer around them.  Events describe committed engine
// outcomes; downstream consumers (notification, analytics) react to them
// without touching the primary database.
package queue

// Queue names for reservation lifecycle events.
const (
	ConfirmedQueue = "reservation.confirmed"
	CancelledQueue = "reservation.cancelled"
)

// ReservationEvent is the payload for both confirmation and cancellation
// events.  It carries enough for consumers to log or notify without a
// database round trip.
type ReservationEvent struct {
	ReservationID string `json:"reservation_id"`
	SessionID     string `json:"session_id"`
	HolderID      string `json:"holder_id"`
	AmountCents   uint32 `json:"amount_cents"`
	OccurredAt    string `json:"occurred_at"`
}
