package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/bookably/session-reservation/internal/model"
	"github.com/bookably/session-reservation/internal/repository"
)

// Bounded retry for transactions aborted by the store's own concurrency
// control.  InnoDB resolves lock cycles by killing one transaction with
// error 1213 (deadlock) or 1205 (lock wait timeout); the losing side can
// safely re-run from the top because nothing it did was committed.
const maxTxAttempts = 3

// MySQLStore adapts the repositories to the engine's Store port.  Each
// Within call is one `database/sql` transaction; row locks come from the
// repositories' FOR UPDATE reads.
type MySQLStore struct {
	db           *sql.DB
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
}

// NewMySQLStore returns a Store backed by MySQL.
func NewMySQLStore(db *sql.DB, sessions *repository.SessionRepo, reservations *repository.ReservationRepo) *MySQLStore {
	if db == nil || sessions == nil || reservations == nil {
		panic("nil dependency passed to NewMySQLStore")
	}
	return &MySQLStore{db: db, sessions: sessions, reservations: reservations}
}

// Within runs fn inside a transaction, retrying up to maxTxAttempts times
// when MySQL aborts the transaction to resolve a conflict.  Exhausted
// retries surface as ErrTransientConflict; every other error aborts
// immediately with a full rollback.
func (s *MySQLStore) Within(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
			}
		}
		err := s.withinOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrTransientConflict, lastErr)
}

func (s *MySQLStore) withinOnce(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx, store: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// mysqlTx is the Tx view over one open transaction.  It delegates to the
// repositories and translates their sentinels into the engine's error
// taxonomy.
type mysqlTx struct {
	tx    *sql.Tx
	store *MySQLStore
}

func (t *mysqlTx) SessionForUpdate(ctx context.Context, sessionID string) (*model.Session, error) {
	sess, err := t.store.sessions.GetForUpdateTx(ctx, t.tx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (t *mysqlTx) SessionCreator(ctx context.Context, sessionID string) (string, error) {
	creatorID, err := t.store.sessions.CreatorTx(ctx, t.tx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return "", ErrSessionNotFound
	}
	return creatorID, err
}

func (t *mysqlTx) ActiveReservationExists(ctx context.Context, sessionID, holderID string) (bool, error) {
	return t.store.reservations.ActiveExistsTx(ctx, t.tx, sessionID, holderID)
}

func (t *mysqlTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	err := t.store.reservations.CreateTx(ctx, t.tx, res)
	if errors.Is(err, repository.ErrDuplicateActive) {
		return ErrDuplicateReservation
	}
	return err
}

func (t *mysqlTx) ReservationForUpdate(ctx context.Context, reservationID string) (*model.Reservation, error) {
	res, err := t.store.reservations.GetForUpdateTx(ctx, t.tx, reservationID)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

func (t *mysqlTx) IncrementOccupancy(ctx context.Context, sessionID string) error {
	return t.store.sessions.IncrementOccupancyTx(ctx, t.tx, sessionID)
}

func (t *mysqlTx) DecrementOccupancy(ctx context.Context, sessionID string) error {
	return t.store.sessions.DecrementOccupancyTx(ctx, t.tx, sessionID)
}

func (t *mysqlTx) MarkCancelled(ctx context.Context, reservationID string, at time.Time) error {
	return t.store.reservations.MarkCancelledTx(ctx, t.tx, reservationID, at)
}

func (t *mysqlTx) MarkCompleted(ctx context.Context, reservationID string) error {
	return t.store.reservations.MarkCompletedTx(ctx, t.tx, reservationID)
}

func (t *mysqlTx) DueConfirmedReservations(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return t.store.reservations.DueConfirmedTx(ctx, t.tx, now, limit)
}
