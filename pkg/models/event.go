package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Layouts used for the persisted date and time columns
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// EventKind defines the type of file system change
type EventKind string

const (
	// EventCreated indicates an entry was created in the watched directory
	EventCreated EventKind = "Created"

	// EventModified indicates an entry was written to
	EventModified EventKind = "Modified"

	// EventDeleted indicates an entry was removed (or renamed away)
	EventDeleted EventKind = "Deleted"
)

// AllEventKinds lists every kind in display order
var AllEventKinds = []EventKind{EventCreated, EventModified, EventDeleted}

// String returns the string representation of the event kind
func (k EventKind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the known kinds
func (k EventKind) IsValid() bool {
	switch k {
	case EventCreated, EventModified, EventDeleted:
		return true
	default:
		return false
	}
}

// ParseEventKind parses user input such as "created", "CREATE" or "ENTRY_CREATE"
func ParseEventKind(s string) (EventKind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "entry_")

	switch v {
	case "created", "create":
		return EventCreated, nil
	case "modified", "modify":
		return EventModified, nil
	case "deleted", "delete":
		return EventDeleted, nil
	default:
		return "", fmt.Errorf("unknown event kind %q", s)
	}
}

// EventRecord describes one detected change. It is a value type and has no
// mutating methods; copies may be shared freely between goroutines.
type EventRecord struct {
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	FileExtension string    `json:"file_extension"`
	Kind          EventKind `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewEventRecord builds a record for the entry at path. The extension is
// derived from the base name and the timestamp is truncated to the second.
func NewEventRecord(kind EventKind, path string, occurredAt time.Time) EventRecord {
	name := filepath.Base(path)
	return EventRecord{
		FileName:      name,
		FilePath:      path,
		FileExtension: ExtensionOf(name),
		Kind:          kind,
		OccurredAt:    occurredAt.Truncate(time.Second),
	}
}

// Date returns the persisted date column value
func (e EventRecord) Date() string {
	return e.OccurredAt.Format(DateLayout)
}

// Time returns the persisted time column value
func (e EventRecord) Time() string {
	return e.OccurredAt.Format(TimeLayout)
}

// Validate checks the fields the store requires
func (e EventRecord) Validate() error {
	if e.FileName == "" {
		return fmt.Errorf("file name is required")
	}
	if e.FilePath == "" {
		return fmt.Errorf("file path is required")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	return nil
}

// String formats the record for console output
func (e EventRecord) String() string {
	return fmt.Sprintf("%s %-8s %s", e.OccurredAt.Format(DateTimeLayout), e.Kind, e.FilePath)
}

// ExtensionOf returns the lower-cased suffix after the last dot of name,
// without the dot. "notes.txt.bak" yields "bak" and "README" yields "".
func ExtensionOf(name string) string {
	return NormalizeExtension(filepath.Ext(filepath.Base(name)))
}

// NormalizeExtension trims, strips leading dots and lower-cases an extension
// so that ".TXT", "txt" and ".txt" compare equal.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimLeft(ext, ".")
	return strings.ToLower(ext)
}
