package interfaces

import (
	"context"
	"time"

	"github.com/filepulse/filepulse/pkg/models"
)

// EventStore defines the contract for persisting and querying event history
type EventStore interface {
	// Append writes all records in one transaction
	Append(ctx context.Context, events []models.EventRecord) error

	// QueryAll returns every record in insertion order
	QueryAll(ctx context.Context) ([]models.EventRecord, error)

	// QueryRecent returns at most limit records, newest first
	QueryRecent(ctx context.Context, limit int) ([]models.EventRecord, error)

	// QueryByExtension returns records whose extension matches ext, newest first
	QueryByExtension(ctx context.Context, ext string) ([]models.EventRecord, error)

	// QueryByEventKind returns records of any of the given kinds, newest first
	QueryByEventKind(ctx context.Context, kinds ...models.EventKind) ([]models.EventRecord, error)

	// QueryByDate returns records on the calendar date of day, latest first
	QueryByDate(ctx context.Context, day time.Time) ([]models.EventRecord, error)

	// Clear removes every record
	Clear(ctx context.Context) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	// CountByKind returns the number of stored records per kind
	CountByKind(ctx context.Context) (map[models.EventKind]int, error)

	// Close releases the underlying handle
	Close() error
}

// Backupper is implemented by stores that can copy their database to a file
type Backupper interface {
	Backup(path string) error
}

// Stats summarizes a monitor for status output
type Stats struct {
	Watching   bool                     `json:"watching"`
	SessionID  string                   `json:"session_id,omitempty"`
	Root       string                   `json:"root,omitempty"`
	Extensions []string                 `json:"extensions,omitempty"`
	StartedAt  time.Time                `json:"started_at,omitempty"`
	Pending    int                      `json:"pending"`
	Dirty      bool                     `json:"dirty"`
	LastSaved  time.Time                `json:"last_saved,omitempty"`
	Stored     int                      `json:"stored"`
	ByKind     map[models.EventKind]int `json:"by_kind,omitempty"`
}
