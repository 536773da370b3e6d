/*
Package sqlite provides a SQLite-backed implementation of the reservation store.

PURPOSE:
  Implements schedule.Store and schedule.TxStore using SQLite. The same
  queries carry over to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  schedule.Store:   Reservation persistence
  schedule.TxStore: Atomic check-and-insert

KEY TABLES:
  reservations: Every booking and operator block, including cancelled rows

INDEXES:
  - idx_reservations_status_start: Overlap queries (hot path)
  - idx_reservations_customer: Per-customer listing

TIME STORAGE:
  Instants are stored as Unix seconds (UTC). Conversion to local time
  happens in the callers.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole database transaction, so a conflict re-check and the insert that
  follows it cannot interleave with another writer. In production with
  PostgreSQL, a SERIALIZABLE transaction or an exclusion constraint on
  tstzrange(start_ts, end_ts + buffer) replaces the lock.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./bookings.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := schedule.NewLedger(store, rules.Buffer)

SEE ALSO:
  - schedule/store.go: Interface definitions
  - schedule/ledger.go: Higher-level ledger using Store
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/gameroom-engine/schedule"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		start_ts INTEGER NOT NULL,
		end_ts INTEGER NOT NULL,
		duration_min INTEGER NOT NULL,
		status TEXT NOT NULL,
		price_total INTEGER NOT NULL,
		addons TEXT NOT NULL DEFAULT '',
		customer_handle TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		CHECK (end_ts > start_ts),
		CHECK (status IN ('pending', 'confirmed', 'cancelled', 'blocked'))
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_status_start
		ON reservations(status, start_ts);
	CREATE INDEX IF NOT EXISTS idx_reservations_start
		ON reservations(start_ts);
	CREATE INDEX IF NOT EXISTS idx_reservations_customer
		ON reservations(customer_handle, start_ts DESC)
		WHERE customer_handle != '';
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RESERVATION STORE (schedule.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectColumns = `
	SELECT id, start_ts, end_ts, status, price_total, addons,
	       customer_handle, customer_name, customer_phone, note, created_at
	FROM reservations`

// Append adds a reservation.
func (s *Store) Append(ctx context.Context, r schedule.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendReservation(ctx, s.db, r)
}

func appendReservation(ctx context.Context, db execer, r schedule.Reservation) error {
	query := `
		INSERT INTO reservations
		(id, start_ts, end_ts, duration_min, status, price_total, addons,
		 customer_handle, customer_name, customer_phone, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.ExecContext(ctx, query,
		string(r.ID),
		r.Interval.Start.Unix(),
		r.Interval.End.Unix(),
		r.DurationMinutes(),
		string(r.Status),
		r.Price,
		r.Addons.Encode(),
		r.Customer.Handle,
		r.Customer.Name,
		r.Customer.Phone,
		r.Note,
		createdAt.Unix(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("reservation %s already exists: %w", r.ID, err)
		}
		return fmt.Errorf("failed to append reservation: %w", err)
	}
	return nil
}

// Get retrieves a reservation by ID.
func (s *Store) Get(ctx context.Context, id schedule.ReservationID) (schedule.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getReservation(ctx, s.db, id)
}

func getReservation(ctx context.Context, db querier, id schedule.ReservationID) (schedule.Reservation, error) {
	rs, err := queryReservations(ctx, db, selectColumns+" WHERE id = ?", string(id))
	if err != nil {
		return schedule.Reservation{}, err
	}
	if len(rs) == 0 {
		return schedule.Reservation{}, schedule.ErrNotFound
	}
	return rs[0], nil
}

// QueryOverlapping returns reservations in statuses overlapping iv.
func (s *Store) QueryOverlapping(ctx context.Context, iv schedule.Interval, statuses []schedule.Status) ([]schedule.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryOverlapping(ctx, s.db, iv, statuses)
}

func queryOverlapping(ctx context.Context, db querier, iv schedule.Interval, statuses []schedule.Status) ([]schedule.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := selectColumns + `
		WHERE status IN (` + placeholders(len(statuses)) + `)
		  AND NOT (end_ts <= ? OR start_ts >= ?)
		ORDER BY start_ts ASC`

	args := statusArgs(statuses)
	args = append(args, iv.Start.Unix(), iv.End.Unix())
	return queryReservations(ctx, db, query, args...)
}

// List returns reservations matching the filter.
func (s *Store) List(ctx context.Context, filter schedule.ListFilter) ([]schedule.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listReservations(ctx, s.db, filter)
}

func listReservations(ctx context.Context, db querier, filter schedule.ListFilter) ([]schedule.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if filter.From != nil {
		where = append(where, "start_ts >= ?")
		args = append(args, filter.From.Unix())
	}
	if filter.To != nil {
		where = append(where, "start_ts < ?")
		args = append(args, filter.To.Unix())
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		args = append(args, statusArgs(filter.Statuses)...)
	}
	if filter.CustomerHandle != "" {
		where = append(where, "customer_handle = ?")
		args = append(args, filter.CustomerHandle)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Newest {
		query += " ORDER BY start_ts DESC, created_at DESC"
	} else {
		query += " ORDER BY start_ts ASC, created_at ASC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return queryReservations(ctx, db, query, args...)
}

// SetStatus changes the status of a reservation.
func (s *Store) SetStatus(ctx context.Context, id schedule.ReservationID, status schedule.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return setStatus(ctx, s.db, id, status)
}

func setStatus(ctx context.Context, db execer, id schedule.ReservationID, status schedule.Status) error {
	res, err := db.ExecContext(ctx, "UPDATE reservations SET status = ? WHERE id = ?", string(status), string(id))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func queryReservations(ctx context.Context, db querier, query string, args ...any) ([]schedule.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []schedule.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}

	return reservations, rows.Err()
}

func scanReservation(rows *sql.Rows) (schedule.Reservation, error) {
	var (
		r         schedule.Reservation
		id        string
		startTS   int64
		endTS     int64
		status    string
		addons    string
		createdAt int64
	)

	err := rows.Scan(
		&id, &startTS, &endTS, &status, &r.Price, &addons,
		&r.Customer.Handle, &r.Customer.Name, &r.Customer.Phone, &r.Note, &createdAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan reservation: %w", err)
	}

	r.ID = schedule.ReservationID(id)
	r.Interval = schedule.Interval{Start: time.Unix(startTS, 0).UTC(), End: time.Unix(endTS, 0).UTC()}
	r.Status = schedule.Status(status)
	r.Addons = schedule.ParseAddonSet(addons)
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return r, nil
}

// =============================================================================
// TRANSACTIONAL STORE (schedule.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store schedule.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Append(ctx context.Context, r schedule.Reservation) error {
	return appendReservation(ctx, ts.tx, r)
}

func (ts *txStore) Get(ctx context.Context, id schedule.ReservationID) (schedule.Reservation, error) {
	return getReservation(ctx, ts.tx, id)
}

func (ts *txStore) QueryOverlapping(ctx context.Context, iv schedule.Interval, statuses []schedule.Status) ([]schedule.Reservation, error) {
	return queryOverlapping(ctx, ts.tx, iv, statuses)
}

func (ts *txStore) List(ctx context.Context, filter schedule.ListFilter) ([]schedule.Reservation, error) {
	return listReservations(ctx, ts.tx, filter)
}

func (ts *txStore) SetStatus(ctx context.Context, id schedule.ReservationID, status schedule.Status) error {
	return setStatus(ctx, ts.tx, id, status)
}

// =============================================================================
// HELPERS
// =============================================================================

// Reset deletes every row. Development and tests only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM reservations")
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func statusArgs(statuses []schedule.Status) []any {
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return args
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
