package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bookably/session-reservation/internal/model"
)

// SessionRepo provides persistence for sessions.  Catalog operations
// (create, edit, publish) write every column except occupancy; the
// occupancy counter is adjusted only through the ...OccupancyTx methods,
// which are called by the reservation engine inside its transactions.
// All timestamps are stored in UTC.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions that
// span sessions and reservations.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `id, creator_id, title, description, price_cents, duration_minutes,
	starts_at, ends_at, capacity, occupancy, status, created_at`

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	var startsAt, endsAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.CreatorID, &s.Title, &s.Description, &s.PriceCents, &s.DurationMinutes,
		&startsAt, &endsAt, &s.Capacity, &s.Occupancy, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startsAt.Valid {
		t := startsAt.Time.UTC()
		s.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		s.EndsAt = &t
	}
	return &s, nil
}

// Create inserts a new session row.  The caller supplies the ID; occupancy
// always starts at zero and status at DRAFT regardless of the struct values.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions
		(id, creator_id, title, description, price_cents, duration_minutes, starts_at, ends_at, capacity, occupancy, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.CreatorID, s.Title, s.Description, s.PriceCents, s.DurationMinutes,
		nullTime(s.StartsAt), nullTime(s.EndsAt), s.Capacity, model.SessionDraft,
	)
	return err
}

// GetByID loads a single session.  It returns ErrSessionNotFound when no
// row exists.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// GetForUpdateTx loads a session inside the given transaction while taking
// a row-level write lock.  Concurrent admissions and cancellations for the
// same session serialize on this lock; sessions with different IDs do not
// block one another.
func (r *SessionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? FOR UPDATE`
	s, err := scanSession(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// Update rewrites the editable catalog columns of a session owned by
// creatorID.  The guard `capacity >= occupancy` is part of the statement so
// a shrinking capacity can never descend below the live counter.  It
// returns ErrSessionNotFound when the row does not exist, ErrForbidden
// when owned by someone else and ErrOccupancyBound when the capacity guard
// refuses the write.
func (r *SessionRepo) Update(ctx context.Context, creatorID string, s *model.Session) error {
	const q = `UPDATE sessions
		SET title = ?, description = ?, price_cents = ?, duration_minutes = ?,
		    starts_at = ?, ends_at = ?, capacity = ?
		WHERE id = ? AND creator_id = ? AND ? >= occupancy`
	res, err := r.db.ExecContext(ctx, q,
		s.Title, s.Description, s.PriceCents, s.DurationMinutes,
		nullTime(s.StartsAt), nullTime(s.EndsAt), s.Capacity,
		s.ID, creatorID, s.Capacity,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	// Zero rows: distinguish missing, foreign and capacity-too-small.
	cur, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	if cur.CreatorID != creatorID {
		return ErrForbidden
	}
	if s.Capacity < cur.Occupancy {
		return ErrOccupancyBound
	}
	// The row matched but nothing changed; treat as success.
	return nil
}

// SetStatus transitions a session between DRAFT, PUBLISHED and CANCELLED on
// behalf of its creator.  Ownership is enforced in the statement itself.
func (r *SessionRepo) SetStatus(ctx context.Context, id, creatorID, status string) error {
	const q = `UPDATE sessions SET status = ? WHERE id = ? AND creator_id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id, creatorID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		cur, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cur.CreatorID != creatorID {
			return ErrForbidden
		}
	}
	return nil
}

// ListByCreator returns every session owned by the given creator, newest
// first.
func (r *SessionRepo) ListByCreator(ctx context.Context, creatorID string) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE creator_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// IncrementOccupancyTx raises the occupancy counter by one inside the
// given transaction.  The `occupancy < capacity` guard in the statement is
// defense in depth: the engine has already validated under the row lock,
// so zero affected rows indicates a bookkeeping bug and is surfaced as
// ErrOccupancyBound, aborting the transaction.
func (r *SessionRepo) IncrementOccupancyTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `UPDATE sessions SET occupancy = occupancy + 1 WHERE id = ? AND occupancy < capacity`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOccupancyBound
	}
	return nil
}

// DecrementOccupancyTx lowers the occupancy counter by one inside the
// given transaction.  The `occupancy > 0` guard keeps the counter from
// ever dropping below zero; zero affected rows aborts the transaction.
func (r *SessionRepo) DecrementOccupancyTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `UPDATE sessions SET occupancy = occupancy - 1 WHERE id = ? AND occupancy > 0`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOccupancyBound
	}
	return nil
}

// CreatorTx returns the creator of a session inside the given transaction.
// Used by the engine to authorize creator-initiated cancellations.
func (r *SessionRepo) CreatorTx(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	const q = `SELECT creator_id FROM sessions WHERE id = ?`
	var creatorID string
	err := tx.QueryRowContext(ctx, q, id).Scan(&creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	return creatorID, err
}

// nullTime converts an optional time into a driver-friendly value, always
// normalized to UTC.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
