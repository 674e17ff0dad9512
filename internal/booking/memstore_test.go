package booking_test

// memStore is an in-memory booking.Store used by the engine tests.  One
// mutex plays the role of the database's row locks: every Within call owns
// the whole store until it returns, and a failed callback rolls the maps
// back to their pre-transaction snapshot.  That reproduces the atomicity
// and isolation the MySQL adapter gets from InnoDB, which is exactly what
// the engine's properties are stated against.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bookably/session-reservation/internal/booking"
	"github.com/bookably/session-reservation/internal/model"
)

type memStore struct {
	mu           sync.Mutex
	sessions     map[string]*model.Session
	reservations map[string]*model.Reservation
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[string]*model.Session),
		reservations: make(map[string]*model.Reservation),
	}
}

func (s *memStore) Within(_ context.Context, fn func(tx booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessSnap := cloneSessions(s.sessions)
	resSnap := cloneReservations(s.reservations)
	if err := fn(&memTx{s: s}); err != nil {
		s.sessions = sessSnap
		s.reservations = resSnap
		return err
	}
	return nil
}

// Fixture and inspection helpers.  They take the same mutex so assertions
// never observe a transaction in flight.

func (s *memStore) addSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sess
	s.sessions[sess.ID] = &cp
}

func (s *memStore) addReservation(res model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := res
	s.reservations[res.ID] = &cp
}

func (s *memStore) setOccupancy(sessionID string, n uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID].Occupancy = n
}

func (s *memStore) setPrice(sessionID string, cents uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID].PriceCents = cents
}

func (s *memStore) occupancy(sessionID string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID].Occupancy
}

func (s *memStore) reservationStatus(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[id]; ok {
		return r.Status
	}
	return ""
}

func (s *memStore) statusOfHolder(sessionID, holderID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.SessionID == sessionID && r.HolderID == holderID {
			return r.Status
		}
	}
	return ""
}

// snapshotCounts summarizes mutable state for no-mutation assertions.
func (s *memStore) snapshotCounts() map[string]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint32, len(s.sessions)+1)
	for id, sess := range s.sessions {
		out["occupancy:"+id] = sess.Occupancy
	}
	out["reservations"] = uint32(len(s.reservations))
	return out
}

type memTx struct {
	s *memStore
}

func (t *memTx) SessionForUpdate(_ context.Context, sessionID string) (*model.Session, error) {
	sess, ok := t.s.sessions[sessionID]
	if !ok {
		return nil, booking.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (t *memTx) SessionCreator(_ context.Context, sessionID string) (string, error) {
	sess, ok := t.s.sessions[sessionID]
	if !ok {
		return "", booking.ErrSessionNotFound
	}
	return sess.CreatorID, nil
}

func (t *memTx) ActiveReservationExists(_ context.Context, sessionID, holderID string) (bool, error) {
	for _, r := range t.s.reservations {
		if r.SessionID == sessionID && r.HolderID == holderID && r.Status != model.ReservationCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertReservation(_ context.Context, res *model.Reservation) error {
	for _, r := range t.s.reservations {
		if r.SessionID == res.SessionID && r.HolderID == res.HolderID && r.Status != model.ReservationCancelled {
			return booking.ErrDuplicateReservation
		}
	}
	cp := *res
	t.s.reservations[res.ID] = &cp
	return nil
}

func (t *memTx) ReservationForUpdate(_ context.Context, reservationID string) (*model.Reservation, error) {
	res, ok := t.s.reservations[reservationID]
	if !ok {
		return nil, booking.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (t *memTx) IncrementOccupancy(_ context.Context, sessionID string) error {
	sess, ok := t.s.sessions[sessionID]
	if !ok {
		return booking.ErrSessionNotFound
	}
	if sess.Occupancy >= sess.Capacity {
		return errors.New("occupancy would exceed capacity")
	}
	sess.Occupancy++
	return nil
}

func (t *memTx) DecrementOccupancy(_ context.Context, sessionID string) error {
	sess, ok := t.s.sessions[sessionID]
	if !ok {
		return booking.ErrSessionNotFound
	}
	if sess.Occupancy == 0 {
		return errors.New("occupancy would drop below zero")
	}
	sess.Occupancy--
	return nil
}

func (t *memTx) MarkCancelled(_ context.Context, reservationID string, at time.Time) error {
	res, ok := t.s.reservations[reservationID]
	if !ok {
		return booking.ErrReservationNotFound
	}
	res.Status = model.ReservationCancelled
	cancelled := at
	res.CancelledAt = &cancelled
	return nil
}

func (t *memTx) MarkCompleted(_ context.Context, reservationID string) error {
	res, ok := t.s.reservations[reservationID]
	if !ok {
		return booking.ErrReservationNotFound
	}
	if res.Status == model.ReservationConfirmed {
		res.Status = model.ReservationCompleted
	}
	return nil
}

func (t *memTx) DueConfirmedReservations(_ context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	for id, r := range t.s.reservations {
		if r.Status != model.ReservationConfirmed {
			continue
		}
		sess, ok := t.s.sessions[r.SessionID]
		if !ok || sess.EndsAt == nil || sess.EndsAt.After(now) {
			continue
		}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func cloneSessions(in map[string]*model.Session) map[string]*model.Session {
	out := make(map[string]*model.Session, len(in))
	for k, v := range in {
		cp := *v
		out[k] = &cp
	}
	return out
}

func cloneReservations(in map[string]*model.Reservation) map[string]*model.Reservation {
	out := make(map[string]*model.Reservation, len(in))
	for k, v := range in {
		cp := *v
		out[k] = &cp
	}
	return out
}

func publishedSession(id, creatorID string, capacity uint32, priceCents uint32) model.Session {
	return model.Session{
		ID:         id,
		CreatorID:  creatorID,
		Title:      "session " + id,
		PriceCents: priceCents,
		Capacity:   capacity,
		Status:     model.SessionPublished,
		CreatedAt:  time.Now().UTC(),
	}
}

func confirmedReservation(id, sessionID, holderID string) model.Reservation {
	return model.Reservation{
		ID:          id,
		SessionID:   sessionID,
		HolderID:    holderID,
		Status:      model.ReservationConfirmed,
		AmountCents: 1000,
		CreatedAt:   time.Now().UTC(),
	}
}
