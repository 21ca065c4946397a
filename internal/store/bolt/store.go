// Package bolt implements the event store on a bbolt file, for hosts where a
// single-file key/value database is preferred over SQLite.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/filepulse/filepulse/internal/store/validate"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/logger"
	"github.com/filepulse/filepulse/pkg/models"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Database buckets
const (
	// BucketEvents stores event rows keyed by their big-endian sequence id
	BucketEvents = "file_events"

	// BucketMetadata stores general metadata
	BucketMetadata = "metadata"
)

const schemaVersion = "1"

// Options represents database options
type Options struct {
	FileMode os.FileMode
	Timeout  time.Duration
	NoSync   bool
	Location *time.Location
	Logger   *zap.Logger
}

// DefaultOptions returns default database options
func DefaultOptions() *Options {
	return &Options{
		FileMode: 0600,
		Timeout:  1 * time.Second,
		Location: time.Local,
	}
}

// row mirrors a file_events row
type row struct {
	ID            uint64 `json:"id"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	FileExtension string `json:"file_extension"`
	EventType     string `json:"event_type"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// Store persists event records in a bbolt bucket
type Store struct {
	db     *bbolt.DB
	path   string
	loc    *time.Location
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if needed) the database at path
func Open(path string, options *Options) (*Store, error) {
	if options == nil {
		options = DefaultOptions()
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Logger == nil {
		options.Logger = logger.Get()
	}
	if options.FileMode == 0 {
		options.FileMode = 0600
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.NewPersistError("failed to create database directory", err)
	}

	db, err := bbolt.Open(path, options.FileMode, &bbolt.Options{
		Timeout: options.Timeout,
		NoSync:  options.NoSync,
	})
	if err != nil {
		return nil, errors.NewPersistError("failed to open database", err)
	}

	if err := initBuckets(db); err != nil {
		db.Close()
		return nil, errors.NewPersistError("failed to initialize buckets", err)
	}

	options.Logger.Debug("Opened bolt event store", zap.String("path", path))

	return &Store{
		db:     db,
		path:   path,
		loc:    options.Location,
		logger: options.Logger,
	}, nil
}

func initBuckets(db *bbolt.DB) error {
	return db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketEvents)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketEvents, err)
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(BucketMetadata))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketMetadata, err)
		}
		return meta.Put([]byte("schema_version"), []byte(schemaVersion))
	})
}

// Path returns the database path
func (s *Store) Path() string {
	return s.path
}

// Append writes events in a single bbolt transaction
func (s *Store) Append(ctx context.Context, events []models.EventRecord) error {
	if err := validate.Batch(events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketEvents))
		for _, e := range events {
			id, err := b.NextSequence()
			if err != nil {
				return err
			}

			at := e.OccurredAt.In(s.loc)
			data, err := json.Marshal(row{
				ID:            id,
				FileName:      e.FileName,
				FilePath:      e.FilePath,
				FileExtension: e.FileExtension,
				EventType:     e.Kind.String(),
				Date:          at.Format(models.DateLayout),
				Time:          at.Format(models.TimeLayout),
			})
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}

			if err := b.Put(itob(id), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewPersistError("failed to append events", err)
	}

	s.logger.Debug("Appended events", zap.Int("count", len(events)))
	return nil
}

// QueryAll returns every record in insertion order
func (s *Store) QueryAll(ctx context.Context) ([]models.EventRecord, error) {
	return s.list(ctx, nil, nil, 0)
}

// QueryRecent returns at most limit records, newest first
func (s *Store) QueryRecent(ctx context.Context, limit int) ([]models.EventRecord, error) {
	if err := validate.Limit(limit); err != nil {
		return nil, err
	}
	return s.list(ctx, nil, newestFirst, limit)
}

// QueryByExtension returns records with the given extension, newest first
func (s *Store) QueryByExtension(ctx context.Context, ext string) ([]models.EventRecord, error) {
	norm, err := validate.Extension(ext)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, func(r *row) bool { return r.FileExtension == norm }, newestFirst, 0)
}

// QueryByEventKind returns records of any of kinds, newest first
func (s *Store) QueryByEventKind(ctx context.Context, kinds ...models.EventKind) ([]models.EventRecord, error) {
	names, err := validate.Kinds(kinds)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	return s.list(ctx, func(r *row) bool { return wanted[r.EventType] }, newestFirst, 0)
}

// QueryByDate returns records on the calendar date of day, latest time first
func (s *Store) QueryByDate(ctx context.Context, day time.Time) ([]models.EventRecord, error) {
	if day.IsZero() {
		return nil, errors.NewQueryError("date is required", nil)
	}
	date := day.Format(models.DateLayout)
	return s.list(ctx, func(r *row) bool { return r.Date == date }, newestFirst, 0)
}

// Clear deletes every record. The id sequence keeps counting, like
// AUTOINCREMENT does.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	var deleted int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketEvents))
		seq := b.Sequence()
		deleted = b.Stats().KeyN

		if err := tx.DeleteBucket([]byte(BucketEvents)); err != nil {
			return err
		}
		nb, err := tx.CreateBucket([]byte(BucketEvents))
		if err != nil {
			return err
		}
		return nb.SetSequence(seq)
	})
	if err != nil {
		return errors.NewPersistError("failed to clear events", err)
	}

	s.logger.Info("Cleared event store", zap.Int("deleted", deleted))
	return nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(BucketEvents)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, errors.NewPersistError("failed to count events", err)
	}
	return count, nil
}

// CountByKind returns the number of stored records per kind
func (s *Store) CountByKind(ctx context.Context) (map[models.EventKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	counts := make(map[models.EventKind]int)
	err := s.forEach(func(r *row) {
		counts[models.EventKind(r.EventType)]++
	})
	if err != nil {
		return nil, err
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

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Backup writes a consistent copy of the database to path
func (s *Store) Backup(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(context.Background()); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(path, 0600)
	})
}

func (s *Store) checkOpen(ctx context.Context) error {
	if s.closed {
		return errors.NewUsageError("event store is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return errors.NewPersistError("request cancelled", err)
	}
	return nil
}

func newestFirst(a, b *row) bool {
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	if a.Time != b.Time {
		return a.Time > b.Time
	}
	return a.ID > b.ID
}

func (s *Store) list(ctx context.Context, match func(*row) bool, less func(a, b *row) bool, limit int) ([]models.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	var rows []*row
	err := s.forEach(func(r *row) {
		if match == nil || match(r) {
			rows = append(rows, r)
		}
	})
	if err != nil {
		return nil, err
	}

	// keys iterate in id order, so rows already are in insertion order
	if less != nil {
		sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	events := make([]models.EventRecord, 0, len(rows))
	for _, r := range rows {
		e, err := s.toRecord(r)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *Store) forEach(fn func(*row)) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketEvents)).ForEach(func(k, v []byte) error {
			var r row
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to unmarshal event %d: %w", btoi(k), err)
			}
			fn(&r)
			return nil
		})
	})
	if err != nil {
		return errors.NewPersistError("failed to read events", err)
	}
	return nil
}

func (s *Store) toRecord(r *row) (models.EventRecord, error) {
	at, err := time.ParseInLocation(models.DateTimeLayout, r.Date+" "+r.Time, s.loc)
	if err != nil {
		return models.EventRecord{}, errors.NewPersistError(fmt.Sprintf("row %d has a malformed date time", r.ID), err)
	}
	return models.EventRecord{
		FileName:      r.FileName,
		FilePath:      r.FilePath,
		FileExtension: r.FileExtension,
		Kind:          models.EventKind(r.EventType),
		OccurredAt:    at,
	}, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
