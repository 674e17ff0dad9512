package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/bookably/session-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations, the ledger of
// who holds a slot on which session.  Mutating methods carry the ...Tx
// suffix and operate inside a caller-supplied transaction so that the
// engine can pair them with occupancy adjustments atomically.  All
// timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, session_id, holder_id, status, amount_cents, created_at, cancelled_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	var cancelledAt sql.NullTime
	err := row.Scan(
		&res.ID, &res.SessionID, &res.HolderID, &res.Status, &res.AmountCents,
		&res.CreatedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		res.CancelledAt = &t
	}
	return &res, nil
}

// CreateTx inserts a reservation inside the given transaction.  A
// duplicate-entry error from the uniqueness constraint on
// (session_id, holder_id, active) is mapped to ErrDuplicateActive so the
// engine's duplicate check has a storage-level backstop.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (id, session_id, holder_id, status, amount_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		res.ID, res.SessionID, res.HolderID, res.Status, res.AmountCents, res.CreatedAt.UTC(),
	)
	if isDuplicateKey(err) {
		return ErrDuplicateActive
	}
	return err
}

// ActiveExistsTx reports whether the holder already has a non-cancelled
// reservation for the session.  Must run inside the same transaction as
// the admission so the answer cannot go stale before commit.
func (r *ReservationRepo) ActiveExistsTx(ctx context.Context, tx *sql.Tx, sessionID, holderID string) (bool, error) {
	const q = `SELECT 1 FROM reservations
		WHERE session_id = ? AND holder_id = ? AND status <> ? LIMIT 1`
	var one int
	err := tx.QueryRowContext(ctx, q, sessionID, holderID, model.ReservationCancelled).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetForUpdateTx loads a reservation inside the given transaction while
// taking a row-level write lock, so concurrent cancellations of the same
// reservation serialize.  Returns ErrReservationNotFound when absent.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// MarkCancelledTx sets the reservation to CANCELLED with the given
// timestamp.  Only PENDING and CONFIRMED rows are eligible; the status
// guard in the statement keeps cancelled rows immutable.
func (r *ReservationRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	const q = `UPDATE reservations SET status = ?, cancelled_at = ?
		WHERE id = ? AND status IN (?, ?)`
	res, err := tx.ExecContext(ctx, q,
		model.ReservationCancelled, at.UTC(), id,
		model.ReservationPending, model.ReservationConfirmed,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// MarkCompletedTx transitions a CONFIRMED reservation to COMPLETED.  No
// occupancy change accompanies this: the slot was consumed, not freed.
func (r *ReservationRepo) MarkCompletedTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	_, err := tx.ExecContext(ctx, q, model.ReservationCompleted, id, model.ReservationConfirmed)
	return err
}

// DueConfirmedTx returns the IDs of confirmed reservations whose session
// has already ended, oldest first, capped at limit.  The scheduler feeds
// these to MarkCompletedTx.
func (r *ReservationRepo) DueConfirmedTx(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]string, error) {
	const q = `SELECT r.id FROM reservations r
		JOIN sessions s ON s.id = r.session_id
		WHERE r.status = ? AND s.ends_at IS NOT NULL AND s.ends_at <= ?
		ORDER BY s.ends_at LIMIT ?`
	rows, err := tx.QueryContext(ctx, q, model.ReservationConfirmed, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReservationDetail is the read-side view of a reservation joined with its
// session, as returned to holders and creators.
type ReservationDetail struct {
	ID           string  `json:"id"`
	SessionID    string  `json:"session_id"`
	HolderID     string  `json:"holder_id"`
	SessionTitle string  `json:"session_title"`
	Status       string  `json:"status"`
	AmountCents  uint32  `json:"amount_cents"`
	StartsAt     *string `json:"starts_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CancelledAt  *string `json:"cancelled_at,omitempty"`
}

const detailColumns = `r.id, r.session_id, r.holder_id, s.title, r.status, r.amount_cents,
	s.starts_at, r.created_at, r.cancelled_at`

func scanDetail(rows *sql.Rows) (*ReservationDetail, error) {
	var d ReservationDetail
	var startsAt, cancelledAt sql.NullTime
	var createdAt time.Time
	err := rows.Scan(
		&d.ID, &d.SessionID, &d.HolderID, &d.SessionTitle, &d.Status, &d.AmountCents,
		&startsAt, &createdAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if startsAt.Valid {
		iso := startsAt.Time.UTC().Format(time.RFC3339)
		d.StartsAt = &iso
	}
	if cancelledAt.Valid {
		iso := cancelledAt.Time.UTC().Format(time.RFC3339)
		d.CancelledAt = &iso
	}
	return &d, nil
}

func (r *ReservationRepo) listDetails(ctx context.Context, q string, args ...any) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ListByHolder returns the holder's reservations, newest first.
func (r *ReservationRepo) ListByHolder(ctx context.Context, holderID string) ([]ReservationDetail, error) {
	const q = `SELECT ` + detailColumns + ` FROM reservations r
		JOIN sessions s ON s.id = r.session_id
		WHERE r.holder_id = ?
		ORDER BY r.created_at DESC`
	return r.listDetails(ctx, q, holderID)
}

// ListByCreator returns every reservation placed on sessions the creator
// owns, newest first.
func (r *ReservationRepo) ListByCreator(ctx context.Context, creatorID string) ([]ReservationDetail, error) {
	const q = `SELECT ` + detailColumns + ` FROM reservations r
		JOIN sessions s ON s.id = r.session_id
		WHERE s.creator_id = ?
		ORDER BY r.created_at DESC`
	return r.listDetails(ctx, q, creatorID)
}

// ListBySessionForCreator returns the reservations on one session after
// verifying that the caller owns it.  It returns ErrSessionNotFound when
// the session does not exist and ErrForbidden when it belongs to another
// creator.
func (r *ReservationRepo) ListBySessionForCreator(ctx context.Context, sessionID, creatorID string) ([]ReservationDetail, error) {
	const checkQ = `SELECT creator_id FROM sessions WHERE id = ?`
	var actual string
	err := r.db.QueryRowContext(ctx, checkQ, sessionID).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if actual != creatorID {
		return nil, ErrForbidden
	}
	const q = `SELECT ` + detailColumns + ` FROM reservations r
		JOIN sessions s ON s.id = r.session_id
		WHERE r.session_id = ?
		ORDER BY r.created_at DESC`
	return r.listDetails(ctx, q, sessionID)
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
