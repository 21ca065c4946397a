// Package accumulator holds detected events in memory until they are saved.
package accumulator

import (
	"context"
	"sync"
	"time"

	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/logger"
	"github.com/filepulse/filepulse/pkg/models"
	"go.uber.org/zap"
)

// Sink is where flushed events are written
type Sink interface {
	Append(ctx context.Context, events []models.EventRecord) error
}

// Clearer deletes everything a sink holds
type Clearer interface {
	Clear(ctx context.Context) error
}

// Accumulator is a bus subscriber that collects unsaved events and tracks
// whether anything is pending.
type Accumulator struct {
	mu         sync.Mutex
	events     []models.EventRecord
	dirty      bool
	generation uint64 // bumped by Clear
	lastFlush  time.Time

	flushMu sync.Mutex
	logger  *zap.Logger
}

// New creates an empty accumulator. A nil logger uses the global one.
func New(l *zap.Logger) *Accumulator {
	if l == nil {
		l = logger.Get()
	}
	return &Accumulator{logger: l}
}

// OnEvent appends event and marks the accumulator dirty
func (a *Accumulator) OnEvent(event models.EventRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	a.dirty = true
}

// Snapshot returns a copy of the pending events in arrival order
func (a *Accumulator) Snapshot() []models.EventRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.EventRecord, len(a.events))
	copy(out, a.events)
	return out
}

// Len returns the number of pending events
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// IsDirty reports whether there are events not yet saved
func (a *Accumulator) IsDirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// LastFlush returns the time of the last successful flush
func (a *Accumulator) LastFlush() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastFlush
}

// Clear drops all pending events without saving them
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
	a.dirty = false
	a.generation++
}

// Reset clears store and then drops pending events. It waits for a flush in
// progress, so a batch being written cannot reappear after Reset returns.
// If store.Clear fails the pending events are kept.
func (a *Accumulator) Reset(ctx context.Context, store Clearer) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	if err := store.Clear(ctx); err != nil {
		return err
	}
	a.Clear()
	return nil
}

// Flush writes the pending events to sink and returns how many were saved.
// Only the saved prefix is removed, so events arriving during the write stay
// pending. On failure nothing is removed and the accumulator stays dirty.
func (a *Accumulator) Flush(ctx context.Context, sink Sink) (int, error) {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	batch := make([]models.EventRecord, len(a.events))
	copy(batch, a.events)
	gen := a.generation
	a.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	if err := sink.Append(ctx, batch); err != nil {
		a.logger.Error("Failed to save pending events",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
		if _, ok := errors.TypeOf(err); ok {
			return 0, err
		}
		return 0, errors.NewPersistError("failed to save pending events", err)
	}

	a.mu.Lock()
	if a.generation == gen {
		rest := make([]models.EventRecord, len(a.events)-len(batch))
		copy(rest, a.events[len(batch):])
		a.events = rest
		a.dirty = len(rest) > 0
	}
	a.lastFlush = time.Now()
	a.mu.Unlock()

	a.logger.Info("Saved pending events", zap.Int("count", len(batch)))
	return len(batch), nil
}

// Run flushes to sink every interval until ctx is cancelled, then flushes
// once more so nothing pending is lost on shutdown.
func (a *Accumulator) Run(ctx context.Context, sink Sink, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		a.finalFlush(ctx, sink)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("Autosave started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			a.finalFlush(ctx, sink)
			return
		case <-ticker.C:
			if !a.IsDirty() {
				continue
			}
			// errors are logged by Flush; events stay pending for the next tick
			_, _ = a.Flush(ctx, sink)
		}
	}
}

func (a *Accumulator) finalFlush(ctx context.Context, sink Sink) {
	if !a.IsDirty() {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_, _ = a.Flush(flushCtx, sink)
}
