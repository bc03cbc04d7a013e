// Package vault implements the durable, append-only ledger store backing
// the audit chain. Records are immutable once persisted: the store exposes
// no update or delete path, and appends are serialized so the hash chain
// never forks.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aeterna/aeterna/internal/crypto"
)

// ErrStoreUnavailable wraps every storage-layer failure. A session must
// not silently continue after one.
var ErrStoreUnavailable = errors.New("ledger store unavailable")

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	sequence INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	curr_hash TEXT NOT NULL,
	signature TEXT NOT NULL,
	metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session_id);
`

const recordColumns = "sequence, session_id, timestamp, event_type, payload, prev_hash, curr_hash, signature, metadata"

// Store manages the SQLite ledger database.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex // orders appends within this process
	logger *slog.Logger
}

// NewStore opens (or creates) the SQLite ledger database.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating vault directory: %w: %w", ErrStoreUnavailable, err)
		}
	}

	// _txlock=immediate makes every transaction take the write lock up
	// front, so the read-head/insert cycle in Append is atomic even when
	// another process holds its own handle on the same file. busy_timeout
	// is set per the DSN so it applies to every pooled connection.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_txlock=immediate&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w: %w", ErrStoreUnavailable, err)
	}

	// WAL keeps verifier reads concurrent with appends.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w: %w", ErrStoreUnavailable, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w: %w", ErrStoreUnavailable, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// busyRetries bounds how often Append re-runs its transaction when
// another writer holds the database past the busy timeout.
const busyRetries = 3

// Append runs one serialized chain insertion: inside a single immediate
// transaction it reads the last chain value, hands it to build, and
// inserts the returned record. The transaction holds the database write
// lock across the whole cycle, so two concurrent appends can never
// compute against the same previous hash, even from separate processes
// sharing the file. The mutex additionally orders appends within this
// process. Returns the assigned sequence.
func (s *Store) Append(ctx context.Context, build func(previousHash string) (Record, error)) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; ; attempt++ {
		seq, err := s.appendTx(ctx, build)
		if err == nil {
			return seq, nil
		}
		if attempt >= busyRetries || !isBusy(err) {
			return 0, err
		}
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("appending record: %w: %w", ErrStoreUnavailable, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
}

func (s *Store) appendTx(ctx context.Context, build func(previousHash string) (Record, error)) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning append transaction: %w: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := lastChainValue(ctx, tx)
	if err != nil {
		return 0, err
	}

	rec, err := build(prev)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO audit_log (session_id, timestamp, event_type, payload, prev_hash, curr_hash, signature, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Timestamp, rec.EventType, rec.Payload,
		rec.PreviousHash, rec.CurrentHash, rec.Signature, rec.Metadata,
	)
	if err != nil {
		return 0, fmt.Errorf("appending record: %w: %w", ErrStoreUnavailable, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading assigned sequence: %w: %w", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing append: %w: %w", ErrStoreUnavailable, err)
	}

	s.logger.Debug("record appended", "sequence", seq, "session", rec.SessionID, "type", rec.EventType)
	return seq, nil
}

// isBusy reports whether err is sqlite lock contention from another
// writer, which appendTx treats as retryable.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// LastChainValue returns the current_hash of the highest-sequence record,
// or the genesis sentinel if the store is empty.
func (s *Store) LastChainValue(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastChainValue(ctx, s.db)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lastChainValue(ctx context.Context, q rowQuerier) (string, error) {
	var hash string
	err := q.QueryRowContext(ctx,
		"SELECT curr_hash FROM audit_log ORDER BY sequence DESC LIMIT 1").Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return crypto.Genesis, nil
	}
	if err != nil {
		return "", fmt.Errorf("querying last chain value: %w: %w", ErrStoreUnavailable, err)
	}
	return hash, nil
}

// RecordsForSession returns all records with the given session ID in
// ascending sequence order.
func (s *Store) RecordsForSession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM audit_log WHERE session_id = ? ORDER BY sequence ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w: %w", sessionID, ErrStoreUnavailable, err)
	}
	return scanRecords(rows)
}

// AllRecords returns the full store in ascending sequence order. This is
// the verifier's read path.
func (s *Store) AllRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM audit_log ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("querying all records: %w: %w", ErrStoreUnavailable, err)
	}
	return scanRecords(rows)
}

// Recent returns up to limit records, newest first, optionally filtered
// by session and event type.
func (s *Store) Recent(ctx context.Context, sessionID, eventType string, limit int) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM audit_log WHERE 1=1"
	var args []any

	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	if eventType != "" {
		query += " AND event_type = ?"
		args = append(args, eventType)
	}
	query += " ORDER BY sequence DESC"
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent records: %w: %w", ErrStoreUnavailable, err)
	}
	return scanRecords(rows)
}

// Stats returns ledger-wide summary counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT session_id), MIN(timestamp), MAX(timestamp) FROM audit_log`,
	).Scan(&st.Records, &st.Sessions, &first, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("querying stats: %w: %w", ErrStoreUnavailable, err)
	}
	st.FirstTimestamp = first.String
	st.LastTimestamp = last.String
	return st, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		var meta sql.NullString
		if err := rows.Scan(&r.Sequence, &r.SessionID, &r.Timestamp, &r.EventType,
			&r.Payload, &r.PreviousHash, &r.CurrentHash, &r.Signature, &meta); err != nil {
			return nil, fmt.Errorf("scanning row: %w: %w", ErrStoreUnavailable, err)
		}
		r.Metadata = meta.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w: %w", ErrStoreUnavailable, err)
	}
	return records, nil
}
