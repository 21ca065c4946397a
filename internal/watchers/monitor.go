package watchers

import (
	"context"
	"sync"
	"time"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	"github.com/filepulse/filepulse/internal/watchers/accumulator"
	"github.com/filepulse/filepulse/internal/watchers/bus"
	"github.com/filepulse/filepulse/internal/watchers/filter"
	"github.com/filepulse/filepulse/internal/watchers/ignore"
	"github.com/filepulse/filepulse/internal/watchers/local"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/logger"
	"github.com/filepulse/filepulse/pkg/models"
	"go.uber.org/zap"
)

// Monitor wires a directory watcher to an accumulator and an event store
type Monitor struct {
	watcher       *local.DirectoryWatcher
	accumulator   *accumulator.Accumulator
	store         interfaces.EventStore
	ignoreMatcher *ignore.Matcher
	autosave      time.Duration
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        *zap.Logger
	isRunning     bool
	runningMu     sync.RWMutex
	lifecycleMu   sync.Mutex // serializes Start and Stop
}

// MonitorConfig contains configuration for the monitor
type MonitorConfig struct {
	Extensions       []string         // Accepted extensions; empty accepts all
	IgnorePatterns   []string         // Glob patterns for names never reported
	IgnoreFile       string           // Optional file with more patterns, one per line
	AutosaveInterval time.Duration    // Save pending events this often; 0 disables
	Clock            func() time.Time // Time source for event stamps
	Logger           *zap.Logger
}

// NewMonitor creates a stopped monitor persisting into store
func NewMonitor(store interfaces.EventStore, config MonitorConfig) (*Monitor, error) {
	if store == nil {
		return nil, errors.NewConfigError("event store is required", nil)
	}

	log := config.Logger
	if log == nil {
		log = logger.Get()
	}

	ignoreMatcher, err := ignore.NewMatcher(config.IgnorePatterns...)
	if err != nil {
		return nil, errors.NewConfigError("invalid ignore pattern", err)
	}
	if config.IgnoreFile != "" {
		if err := ignoreMatcher.LoadFromFile(config.IgnoreFile); err != nil {
			log.Warn("Failed to load ignore file",
				zap.String("file", config.IgnoreFile),
				zap.Error(err),
			)
		}
	}

	watcher := local.NewDirectoryWatcher(
		filter.New(config.Extensions...),
		local.WithIgnorePatterns(ignoreMatcher),
		local.WithClock(config.Clock),
		local.WithLogger(log),
	)

	acc := accumulator.New(log)
	watcher.Subscribe(acc)

	return &Monitor{
		watcher:       watcher,
		accumulator:   acc,
		store:         store,
		ignoreMatcher: ignoreMatcher,
		autosave:      config.AutosaveInterval,
		logger:        log,
	}, nil
}

// Start starts watching root. Pending events from an earlier run are kept.
// Cancelling ctx does not stop the monitor; only Stop does.
func (m *Monitor) Start(ctx context.Context, root string) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.IsRunning() {
		return errors.ErrAlreadyRunning
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := m.watcher.Start(ctx, root); err != nil {
		return err
	}

	var cancel context.CancelFunc
	if m.autosave > 0 {
		var runCtx context.Context
		runCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.accumulator.Run(runCtx, m.store, m.autosave)
		}()
	}

	m.runningMu.Lock()
	m.cancel = cancel
	m.isRunning = true
	m.runningMu.Unlock()

	m.logger.Info("Monitor started",
		zap.String("root", m.watcher.Session().Root),
		zap.Duration("autosave", m.autosave),
		zap.Strings("ignore", m.ignoreMatcher.GetPatterns()),
	)

	return nil
}

// Stop stops the watcher. With autosave enabled, pending events are saved
// before Stop returns.
func (m *Monitor) Stop() error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.runningMu.RLock()
	running, cancel := m.isRunning, m.cancel
	m.runningMu.RUnlock()

	if !running {
		return nil
	}

	err := m.watcher.Stop()
	if err != nil {
		m.logger.Error("Failed to stop directory watcher", zap.Error(err))
	}

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.runningMu.Lock()
	m.cancel = nil
	m.isRunning = false
	m.runningMu.Unlock()

	m.logger.Info("Monitor stopped", zap.Int("pending", m.accumulator.Len()))

	return err
}

// Save writes pending events to the store and returns how many were saved
func (m *Monitor) Save(ctx context.Context) (int, error) {
	return m.accumulator.Flush(ctx, m.store)
}

// Reset deletes the stored history and drops pending events
func (m *Monitor) Reset(ctx context.Context) error {
	if err := m.accumulator.Reset(ctx, m.store); err != nil {
		return err
	}
	m.logger.Info("Event history reset")
	return nil
}

// Pending returns the events not yet saved
func (m *Monitor) Pending() []models.EventRecord {
	return m.accumulator.Snapshot()
}

// IsDirty reports whether there are unsaved events
func (m *Monitor) IsDirty() bool {
	return m.accumulator.IsDirty()
}

// Subscribe registers an additional consumer of detected events
func (m *Monitor) Subscribe(sub bus.Subscriber) (unsubscribe func()) {
	return m.watcher.Subscribe(sub)
}

// IsRunning returns whether the monitor is running
func (m *Monitor) IsRunning() bool {
	m.runningMu.RLock()
	defer m.runningMu.RUnlock()
	return m.isRunning
}

// Session returns the active watch session, or nil
func (m *Monitor) Session() *models.WatchSession {
	return m.watcher.Session()
}

// Store returns the event store
func (m *Monitor) Store() interfaces.EventStore {
	return m.store
}

// Stats returns statistics about the monitor and the stored history
func (m *Monitor) Stats(ctx context.Context) (interfaces.Stats, error) {
	stats := interfaces.Stats{
		Watching:   m.watcher.IsWatching(),
		Extensions: m.watcher.Filter().Extensions(),
		Pending:    m.accumulator.Len(),
		Dirty:      m.accumulator.IsDirty(),
		LastSaved:  m.accumulator.LastFlush(),
	}

	if s := m.watcher.Session(); s != nil {
		stats.SessionID = s.ID
		stats.Root = s.Root
		stats.StartedAt = s.StartedAt
	}

	stored, err := m.store.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.Stored = stored

	byKind, err := m.store.CountByKind(ctx)
	if err != nil {
		return stats, err
	}
	stats.ByKind = byKind

	return stats, nil
}
