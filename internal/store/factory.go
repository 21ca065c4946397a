// Package store selects and opens the configured event store backend.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	boltstore "github.com/filepulse/filepulse/internal/store/bolt"
	"github.com/filepulse/filepulse/internal/store/sqlite"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/logger"
	"go.uber.org/zap"
)

// Driver names an event store backend
type Driver string

const (
	// SQLite stores events in a file_events table (default)
	SQLite Driver = "sqlite"
	// Bolt stores events in a bbolt bucket
	Bolt Driver = "bolt"
)

// Drivers lists the supported backends
var Drivers = []Driver{SQLite, Bolt}

var (
	_ interfaces.EventStore = (*sqlite.Store)(nil)
	_ interfaces.EventStore = (*boltstore.Store)(nil)
	_ interfaces.Backupper  = (*sqlite.Store)(nil)
	_ interfaces.Backupper  = (*boltstore.Store)(nil)
)

// Config selects and configures a backend
type Config struct {
	Driver   Driver
	Path     string
	Location *time.Location
	Logger   *zap.Logger
}

// ParseDriver parses a driver name, case-insensitively
func ParseDriver(s string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(s))) {
	case SQLite, "sqlite3", "":
		return SQLite, nil
	case Bolt, "bbolt", "boltdb":
		return Bolt, nil
	default:
		return "", errors.NewConfigError(fmt.Sprintf("unknown store driver: %s", s), nil)
	}
}

// DefaultPath returns the default database file for driver
func DefaultPath(driver Driver) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	name := "filepulse.db"
	if driver == Bolt {
		name = "filepulse.bolt"
	}
	return filepath.Join(home, ".filepulse", name)
}

// Open opens the backend described by cfg
func Open(ctx context.Context, cfg Config) (interfaces.EventStore, error) {
	driver, err := ParseDriver(string(cfg.Driver))
	if err != nil {
		return nil, err
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath(driver)
	}
	path = expandHome(path)

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	log.Debug("Opening event store",
		zap.String("driver", string(driver)),
		zap.String("path", path),
	)

	switch driver {
	case Bolt:
		opts := boltstore.DefaultOptions()
		opts.Logger = log
		if cfg.Location != nil {
			opts.Location = cfg.Location
		}
		s, err := boltstore.Open(path, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := sqlite.Open(ctx, path,
			sqlite.WithLogger(log),
			sqlite.WithLocation(cfg.Location),
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
