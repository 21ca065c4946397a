package interfaces

import (
	"context"

	"github.com/filepulse/filepulse/internal/watchers/bus"
	"github.com/filepulse/filepulse/pkg/models"
)

// DirectoryWatcher defines the contract for monitoring one directory
type DirectoryWatcher interface {
	// Start begins watching root; fails if already running
	Start(ctx context.Context, root string) error

	// Stop stops the watcher and waits for its worker to exit
	Stop() error

	// Subscribe registers a consumer of translated events
	Subscribe(sub bus.Subscriber) (unsubscribe func())

	// IsWatching checks if currently watching
	IsWatching() bool

	// Session returns the active session, or nil when stopped
	Session() *models.WatchSession
}
