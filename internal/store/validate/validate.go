// Package validate checks store inputs shared by every backend.
package validate

import (
	"fmt"

	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/models"
)

// Batch checks that every record carries the fields the store requires
func Batch(events []models.EventRecord) error {
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return errors.NewValidationError(fmt.Sprintf("record %d is invalid", i), err).
				WithContext("path", e.FilePath)
		}
		if !e.Kind.IsValid() {
			return errors.NewValidationError(fmt.Sprintf("record %d has unknown kind %q", i, e.Kind), nil).
				WithContext("path", e.FilePath)
		}
	}
	return nil
}

// Limit checks a QueryRecent limit
func Limit(limit int) error {
	if limit <= 0 {
		return errors.NewQueryError(fmt.Sprintf("limit must be positive, got %d", limit), nil)
	}
	return nil
}

// Extension normalizes ext and rejects empty input
func Extension(ext string) (string, error) {
	norm := models.NormalizeExtension(ext)
	if norm == "" {
		return "", errors.NewQueryError(fmt.Sprintf("extension %q is empty", ext), nil)
	}
	return norm, nil
}

// Kinds rejects an empty set or unknown kinds and returns the distinct kind
// names in input order.
func Kinds(kinds []models.EventKind) ([]string, error) {
	if len(kinds) == 0 {
		return nil, errors.NewQueryError("at least one event kind is required", nil)
	}

	seen := make(map[models.EventKind]bool, len(kinds))
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if !k.IsValid() {
			return nil, errors.NewQueryError(fmt.Sprintf("unknown event kind %q", k), nil)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k.String())
	}
	return out, nil
}
