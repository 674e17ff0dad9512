package booking_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookably/session-reservation/internal/booking"
	"github.com/bookably/session-reservation/internal/repository"
)

// nopDriver begins and resolves transactions without a server, so the
// retry behavior of Within can be driven entirely by the injected callback.
type nopDriver struct{}

func (nopDriver) Open(string) (driver.Conn, error) { return nopConn{}, nil }

type nopConn struct{}

func (nopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unsupported") }
func (nopConn) Close() error                        { return nil }
func (nopConn) Begin() (driver.Tx, error)           { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

func init() { sql.Register("nop", nopDriver{}) }

func newNopStore(t *testing.T) *booking.MySQLStore {
	t.Helper()
	db, err := sql.Open("nop", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return booking.NewMySQLStore(db, repository.NewSessionRepo(db), repository.NewReservationRepo(db))
}

func TestWithin_DeadlocksExhaustRetriesAsTransient(t *testing.T) {
	store := newNopStore(t)

	attempts := 0
	err := store.Within(context.Background(), func(booking.Tx) error {
		attempts++
		return &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrTransientConflict)
	assert.Equal(t, 3, attempts, "deadlocks are retried a bounded number of times")
}

func TestWithin_LockTimeoutRecoversOnRetry(t *testing.T) {
	store := newNopStore(t)

	attempts := 0
	err := store.Within(context.Background(), func(booking.Tx) error {
		attempts++
		if attempts == 1 {
			return &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithin_NonRetryableFailsImmediately(t *testing.T) {
	store := newNopStore(t)

	boom := errors.New("boom")
	attempts := 0
	err := store.Within(context.Background(), func(booking.Tx) error {
		attempts++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, booking.ErrTransientConflict)
	assert.Equal(t, 1, attempts, "only deadlock and lock-wait errors are retried")
}
