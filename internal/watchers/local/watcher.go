package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/filepulse/filepulse/internal/watchers/bus"
	"github.com/filepulse/filepulse/internal/watchers/filter"
	"github.com/filepulse/filepulse/internal/watchers/ignore"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/logger"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Option configures a DirectoryWatcher
type Option func(*DirectoryWatcher)

// WithClock overrides the time source used to stamp events
func WithClock(clock func() time.Time) Option {
	return func(dw *DirectoryWatcher) {
		if clock != nil {
			dw.clock = clock
		}
	}
}

// WithIgnorePatterns drops notifications whose names match m
func WithIgnorePatterns(m *ignore.Matcher) Option {
	return func(dw *DirectoryWatcher) {
		dw.ignore = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(dw *DirectoryWatcher) {
		if l != nil {
			dw.logger = l
		}
	}
}

// DirectoryWatcher watches a single directory (non-recursive) with fsnotify and
// publishes one EventRecord per accepted notification.
type DirectoryWatcher struct {
	filter filter.ExtensionFilter
	ignore *ignore.Matcher
	bus    *bus.EventBus
	clock  func() time.Time
	logger *zap.Logger

	watcher   *fsnotify.Watcher
	session   *models.WatchSession
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	runningMu sync.RWMutex

	// serializes Start and Stop; runningMu is not held while Stop waits
	lifecycleMu sync.Mutex
}

// NewDirectoryWatcher creates a stopped watcher using f to select entries
func NewDirectoryWatcher(f filter.ExtensionFilter, opts ...Option) *DirectoryWatcher {
	dw := &DirectoryWatcher{
		filter: f,
		clock:  time.Now,
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(dw)
	}
	dw.bus = bus.New(dw.logger)
	return dw
}

// Start begins watching root. It returns errors.ErrAlreadyRunning if a watch
// is active, and a watch_init error if root cannot be registered.
// Cancelling ctx does not end the watch; only Stop does.
func (dw *DirectoryWatcher) Start(ctx context.Context, root string) error {
	dw.lifecycleMu.Lock()
	defer dw.lifecycleMu.Unlock()

	if dw.IsWatching() {
		return errors.ErrAlreadyRunning
	}

	if ctx == nil {
		ctx = context.Background()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.NewWatchInitError(fmt.Sprintf("failed to resolve %s", root), err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return errors.NewWatchInitError(fmt.Sprintf("cannot access %s", absRoot), err)
	}
	if !info.IsDir() {
		return errors.NewWatchInitError(fmt.Sprintf("%s is not a directory", absRoot), nil)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewWatchInitError("failed to create fsnotify watcher", err)
	}
	if err := w.Add(absRoot); err != nil {
		w.Close()
		return errors.NewWatchInitError(fmt.Sprintf("failed to register %s", absRoot), err)
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	session := models.NewWatchSession(absRoot, dw.filter.Extensions())
	log := logger.WithSession(dw.logger, session.ID)

	dw.runningMu.Lock()
	dw.watcher = w
	dw.cancel = cancel
	dw.session = session
	dw.isRunning = true
	dw.runningMu.Unlock()

	dw.wg.Add(1)
	go dw.monitor(workerCtx, w, log)

	log.Info("Directory watcher started",
		zap.String("root", absRoot),
		zap.String("extensions", dw.filter.String()),
	)

	return nil
}

// Stop stops the watcher and blocks until the worker has exited. Calling it
// on a stopped watcher is a no-op.
func (dw *DirectoryWatcher) Stop() error {
	dw.lifecycleMu.Lock()
	defer dw.lifecycleMu.Unlock()

	dw.runningMu.RLock()
	running, w, cancel, session := dw.isRunning, dw.watcher, dw.cancel, dw.session
	dw.runningMu.RUnlock()

	if !running {
		return nil
	}

	cancel()
	err := w.Close()
	dw.wg.Wait()

	dw.runningMu.Lock()
	dw.watcher = nil
	dw.cancel = nil
	dw.session = nil
	dw.isRunning = false
	dw.runningMu.Unlock()

	logger.WithSession(dw.logger, session.ID).Info("Directory watcher stopped",
		zap.Duration("uptime", session.Uptime()),
	)

	if err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}
	return nil
}

// Subscribe registers a consumer. Subscribers run on the worker goroutine and
// may query the watcher, but must not call Start or Stop.
func (dw *DirectoryWatcher) Subscribe(sub bus.Subscriber) (unsubscribe func()) {
	return dw.bus.Subscribe(sub)
}

// IsWatching checks if currently watching
func (dw *DirectoryWatcher) IsWatching() bool {
	dw.runningMu.RLock()
	defer dw.runningMu.RUnlock()
	return dw.isRunning
}

// Session returns a copy of the active session, or nil when stopped
func (dw *DirectoryWatcher) Session() *models.WatchSession {
	dw.runningMu.RLock()
	defer dw.runningMu.RUnlock()
	if dw.session == nil {
		return nil
	}
	s := *dw.session
	return &s
}

// Filter returns the extension filter
func (dw *DirectoryWatcher) Filter() filter.ExtensionFilter {
	return dw.filter
}

// monitor is the worker goroutine; it exits when ctx is cancelled or the
// fsnotify handle is closed.
func (dw *DirectoryWatcher) monitor(ctx context.Context, w *fsnotify.Watcher, log *zap.Logger) {
	defer dw.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			dw.handleEvent(ctx, event, log)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Error("File watcher error", zap.Error(err))
		}
	}
}

// handleEvent translates one notification and publishes it if accepted
func (dw *DirectoryWatcher) handleEvent(ctx context.Context, event fsnotify.Event, log *zap.Logger) {
	kind, ok := MapOp(event.Op)
	if !ok {
		return
	}

	path, err := filepath.Abs(event.Name)
	if err != nil {
		log.Debug("Skipping notification",
			zap.Error(errors.NewNotificationResolutionError(event.Name, err)),
		)
		return
	}

	if dw.ignore.ShouldIgnore(path) {
		return
	}

	if !dw.filter.Accepts(filepath.Base(path)) {
		return
	}

	// nothing is translated once the watch has been cancelled
	if ctx.Err() != nil {
		return
	}

	record := models.NewEventRecord(kind, path, dw.clock())
	log.Debug("File change detected",
		zap.String("path", record.FilePath),
		zap.String("kind", record.Kind.String()),
	)

	dw.bus.Publish(record)
}

// MapOp maps fsnotify operations to event kinds. Chmod-only notifications
// are not reported.
func MapOp(op fsnotify.Op) (models.EventKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return models.EventCreated, true
	case op.Has(fsnotify.Write):
		return models.EventModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return models.EventDeleted, true
	default:
		return "", false
	}
}
