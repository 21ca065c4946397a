// Package sqlite implements the event store on SQLite (modernc.org/sqlite,
// no cgo). The schema is applied with goose migrations embedded in the binary.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/filepulse/filepulse/internal/store/validate"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/logger"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "file_events"

// insertChunk keeps multi-row inserts well under SQLite's bound parameter limit
const insertChunk = 500

var columns = []string{"id", "file_name", "file_path", "file_extension", "event_type", "date", "time"}

// newest first; id breaks ties between events in the same second
var newestFirst = []string{"date DESC", "time DESC", "id DESC"}

// Option configures a Store
type Option func(*Store)

// WithLocation sets the time zone used for the date and time columns
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store persists event records in the file_events table
type Store struct {
	db     *sql.DB
	path   string
	loc    *time.Location
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if needed) the database at path and migrates it.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		loc:    time.Local,
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.NewPersistError("failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewPersistError("failed to open sqlite database", err)
	}

	// a single connection serializes writers and keeps an in-memory
	// database alive for the life of the store
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.NewPersistError(fmt.Sprintf("failed to exec %q", pragma), err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	s.logger.Debug("Opened sqlite event store", zap.String("path", path))
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return errors.NewPersistError("failed to load migrations", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return errors.NewPersistError("failed to create migration provider", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return errors.NewPersistError("failed to apply migrations", err)
	}
	return nil
}

// Path returns the database path
func (s *Store) Path() string {
	return s.path
}

// Append inserts events in a single transaction
func (s *Store) Append(ctx context.Context, events []models.EventRecord) error {
	if err := validate.Batch(events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewPersistError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(events); start += insertChunk {
		end := min(start+insertChunk, len(events))

		insert := squirrel.Insert(table).
			Columns(columns[1:]...)
		for _, e := range events[start:end] {
			at := e.OccurredAt.In(s.loc)
			insert = insert.Values(
				e.FileName,
				e.FilePath,
				e.FileExtension,
				e.Kind.String(),
				at.Format(models.DateLayout),
				at.Format(models.TimeLayout),
			)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return errors.NewPersistError("failed to build insert", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.NewPersistError("failed to insert events", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewPersistError("failed to commit events", err)
	}

	s.logger.Debug("Appended events", zap.Int("count", len(events)))
	return nil
}

// QueryAll returns every record in insertion order
func (s *Store) QueryAll(ctx context.Context) ([]models.EventRecord, error) {
	return s.list(ctx, s.selectEvents().OrderBy("id ASC"))
}

// QueryRecent returns at most limit records, newest first
func (s *Store) QueryRecent(ctx context.Context, limit int) ([]models.EventRecord, error) {
	if err := validate.Limit(limit); err != nil {
		return nil, err
	}
	return s.list(ctx, s.selectEvents().OrderBy(newestFirst...).Limit(uint64(limit)))
}

// QueryByExtension returns records with the given extension, newest first
func (s *Store) QueryByExtension(ctx context.Context, ext string) ([]models.EventRecord, error) {
	norm, err := validate.Extension(ext)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, s.selectEvents().
		Where(squirrel.Eq{"file_extension": norm}).
		OrderBy(newestFirst...))
}

// QueryByEventKind returns records of any of kinds, newest first
func (s *Store) QueryByEventKind(ctx context.Context, kinds ...models.EventKind) ([]models.EventRecord, error) {
	names, err := validate.Kinds(kinds)
	if err != nil {
		return nil, err
	}
	// a slice value expands to IN (?, ?, ...) with one parameter per kind
	return s.list(ctx, s.selectEvents().
		Where(squirrel.Eq{"event_type": names}).
		OrderBy(newestFirst...))
}

// QueryByDate returns records whose date column equals the calendar date of
// day (its own year, month and day), latest time first.
func (s *Store) QueryByDate(ctx context.Context, day time.Time) ([]models.EventRecord, error) {
	if day.IsZero() {
		return nil, errors.NewQueryError("date is required", nil)
	}
	return s.list(ctx, s.selectEvents().
		Where(squirrel.Eq{"date": day.Format(models.DateLayout)}).
		OrderBy("time DESC", "id DESC"))
}

// Clear deletes every record
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	query, args, err := squirrel.Delete(table).ToSql()
	if err != nil {
		return errors.NewPersistError("failed to build delete", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewPersistError("failed to clear events", err)
	}

	n, _ := res.RowsAffected()
	s.logger.Info("Cleared event store", zap.Int64("deleted", n))
	return nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	query, args, err := squirrel.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, errors.NewPersistError("failed to build count", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.NewPersistError("failed to count events", err)
	}
	return n, nil
}

// CountByKind returns the number of stored records per kind
func (s *Store) CountByKind(ctx context.Context) (map[models.EventKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query, args, err := squirrel.Select("event_type", "COUNT(*)").
		From(table).
		GroupBy("event_type").
		ToSql()
	if err != nil {
		return nil, errors.NewPersistError("failed to build count", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistError("failed to count events", err)
	}
	defer rows.Close()

	counts := make(map[models.EventKind]int)
	for rows.Next() {
		var kind sql.NullString
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, errors.NewPersistError("failed to scan count", err)
		}
		counts[models.EventKind(kind.String)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistError("failed to count events", err)
	}
	return counts, nil
}

// Close closes the database. Further calls are no-ops.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Backup writes a consistent copy of the database to path, which must not
// exist yet
func (s *Store) Backup(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := s.db.Exec("VACUUM INTO ?", path); err != nil {
		return errors.NewPersistError("failed to back up database", err)
	}
	s.logger.Info("Backed up event store", zap.String("path", path))
	return nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return errors.NewUsageError("event store is closed", nil)
	}
	return nil
}

func (s *Store) selectEvents() squirrel.SelectBuilder {
	return squirrel.Select(columns...).From(table)
}

func (s *Store) list(ctx context.Context, q squirrel.SelectBuilder) ([]models.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.NewQueryError("failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistError("failed to query events", err)
	}
	defer rows.Close()

	var events []models.EventRecord
	for rows.Next() {
		e, err := s.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistError("failed to read events", err)
	}
	return events, nil
}

func (s *Store) scanEvent(scanner interface{ Scan(dest ...any) error }) (models.EventRecord, error) {
	var (
		id                    int64
		name, path            string
		ext, kind, date, hour sql.NullString
	)
	if err := scanner.Scan(&id, &name, &path, &ext, &kind, &date, &hour); err != nil {
		return models.EventRecord{}, errors.NewPersistError("failed to scan event", err)
	}

	at, err := time.ParseInLocation(models.DateTimeLayout, date.String+" "+hour.String, s.loc)
	if err != nil {
		return models.EventRecord{}, errors.NewPersistError(fmt.Sprintf("row %d has a malformed date time", id), err)
	}

	return models.EventRecord{
		FileName:      name,
		FilePath:      path,
		FileExtension: ext.String,
		Kind:          models.EventKind(kind.String),
		OccurredAt:    at,
	}, nil
}
