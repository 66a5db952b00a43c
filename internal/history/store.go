package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timestampLayout is fixed width so recorded_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Serializes writers from concurrent candidates.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry. Missing IDs and timestamps are filled in.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	if entry.Status == "" {
		return fmt.Errorf("record %s: missing status", entry.Source)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO moves (
            id, candidate_id, status, source_path, destination_path, category,
            reason, error_message, size_bytes, wait_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CandidateID,
		string(entry.Status),
		entry.Source,
		nullableString(entry.Destination),
		nullableString(entry.Category),
		nullableString(entry.Reason),
		nullableString(entry.Error),
		entry.Size,
		entry.Wait.Milliseconds(),
		entry.RecordedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := strings.Builder{}
	query.WriteString(`SELECT id, candidate_id, status, source_path, destination_path, category,
        reason, error_message, size_bytes, wait_ms, recorded_at FROM moves`)
	args := make([]any, 0, 2)
	if filter.Status != "" {
		query.WriteString(" WHERE status = ?")
		args = append(args, string(filter.Status))
	}
	query.WriteString(" ORDER BY recorded_at DESC, rowid DESC LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Counts returns the number of entries per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM moves GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan history count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// Prune deletes entries recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM moves WHERE recorded_at < ?", cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history rows affected: %w", err)
	}
	return removed, nil
}

// PruneOlderThan deletes entries older than the given number of days. A
// non-positive value disables pruning.
func (s *Store) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return s.Prune(ctx, time.Now().AddDate(0, 0, -days))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry                                  Entry
		status, recordedAt                     string
		destination, category, reason, errText sql.NullString
		waitMillis                             int64
	)
	if err := row.Scan(
		&entry.ID,
		&entry.CandidateID,
		&status,
		&entry.Source,
		&destination,
		&category,
		&reason,
		&errText,
		&entry.Size,
		&waitMillis,
		&recordedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	entry.Status = Status(status)
	entry.Destination = destination.String
	entry.Category = category.String
	entry.Reason = reason.String
	entry.Error = errText.String
	entry.Wait = time.Duration(waitMillis) * time.Millisecond
	if ts, err := time.Parse(timestampLayout, recordedAt); err == nil {
		entry.RecordedAt = ts
	}
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
