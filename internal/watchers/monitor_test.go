package watchers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filepulse/filepulse/internal/store/sqlite"
	"github.com/filepulse/filepulse/internal/watchers/bus"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventStore is a mock implementation of interfaces.EventStore
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Append(ctx context.Context, events []models.EventRecord) error {
	return m.Called(ctx, events).Error(0)
}

func (m *MockEventStore) QueryAll(ctx context.Context) ([]models.EventRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.EventRecord), args.Error(1)
}

func (m *MockEventStore) QueryRecent(ctx context.Context, limit int) ([]models.EventRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.EventRecord), args.Error(1)
}

func (m *MockEventStore) QueryByExtension(ctx context.Context, ext string) ([]models.EventRecord, error) {
	args := m.Called(ctx, ext)
	return args.Get(0).([]models.EventRecord), args.Error(1)
}

func (m *MockEventStore) QueryByEventKind(ctx context.Context, kinds ...models.EventKind) ([]models.EventRecord, error) {
	args := m.Called(ctx, kinds)
	return args.Get(0).([]models.EventRecord), args.Error(1)
}

func (m *MockEventStore) QueryByDate(ctx context.Context, day time.Time) ([]models.EventRecord, error) {
	args := m.Called(ctx, day)
	return args.Get(0).([]models.EventRecord), args.Error(1)
}

func (m *MockEventStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockEventStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockEventStore) CountByKind(ctx context.Context) (map[models.EventKind]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[models.EventKind]int), args.Error(1)
}

func (m *MockEventStore) Close() error {
	return m.Called().Error(0)
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "events.db"), sqlite.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func touch(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func waitForPending(t *testing.T, m *Monitor, name string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, e := range m.Pending() {
			if e.FileName == name && e.Kind == models.EventCreated {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNewMonitorValidation(t *testing.T) {
	_, err := NewMonitor(nil, MonitorConfig{})
	assert.True(t, errors.IsConfigError(err))

	_, err = NewMonitor(new(MockEventStore), MonitorConfig{IgnorePatterns: []string{"[a-"}, Logger: zap.NewNop()})
	assert.True(t, errors.IsConfigError(err))
}

func TestMonitorWatchSaveQuery(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t)

	m, err := NewMonitor(store, MonitorConfig{
		Extensions: []string{"txt"},
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx, dir))
	defer m.Stop()

	touch(t, filepath.Join(dir, "a.txt"))
	touch(t, filepath.Join(dir, "skip.java"))
	waitForPending(t, m, "a.txt")
	assert.True(t, m.IsDirty())

	n, err := m.Save(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	created, err := store.QueryByEventKind(ctx, models.EventCreated)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "a.txt", created[0].FileName)

	java, err := store.QueryByExtension(ctx, "java")
	require.NoError(t, err)
	assert.Empty(t, java)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Watching)
	assert.Equal(t, []string{"txt"}, stats.Extensions)
	assert.NotEmpty(t, stats.SessionID)
	assert.GreaterOrEqual(t, stats.Stored, 1)
	assert.Equal(t, 1, stats.ByKind[models.EventCreated])
	assert.False(t, stats.LastSaved.IsZero())
}

func TestMonitorOutlivesStartContext(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t)

	m, err := NewMonitor(store, MonitorConfig{
		AutosaveInterval: time.Hour,
		Logger:           zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx, dir))
	cancel()

	touch(t, filepath.Join(dir, "late.txt"))
	waitForPending(t, m, "late.txt")

	stats, err := m.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Watching)
	assert.True(t, stats.LastSaved.IsZero())
	assert.True(t, m.IsRunning())

	// the autosave loop is still alive and saves on Stop
	require.NoError(t, m.Stop())
	assert.False(t, m.IsDirty())
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestMonitorStartTwiceRejected(t *testing.T) {
	m, err := NewMonitor(openStore(t), MonitorConfig{Logger: zap.NewNop()})
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background(), t.TempDir()))
	defer m.Stop()

	assert.ErrorIs(t, m.Start(context.Background(), t.TempDir()), errors.ErrAlreadyRunning)
}

func TestMonitorStartBadRoot(t *testing.T) {
	m, err := NewMonitor(openStore(t), MonitorConfig{Logger: zap.NewNop()})
	require.NoError(t, err)

	err = m.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.IsWatchInitError(err))
	assert.False(t, m.IsRunning())
	assert.NoError(t, m.Stop())
}

func TestMonitorAutosaveFlushesOnStop(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t)

	m, err := NewMonitor(store, MonitorConfig{
		AutosaveInterval: time.Hour,
		Logger:           zap.NewNop(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx, dir))
	touch(t, filepath.Join(dir, "a.txt"))
	waitForPending(t, m, "a.txt")

	require.NoError(t, m.Stop())

	assert.False(t, m.IsDirty())
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestMonitorSaveFailureKeepsPending(t *testing.T) {
	dir := t.TempDir()
	store := new(MockEventStore)
	store.On("Append", mock.Anything, mock.Anything).Return(errors.NewPersistError("disk full", fmt.Errorf("ENOSPC")))

	m, err := NewMonitor(store, MonitorConfig{Logger: zap.NewNop()})
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background(), dir))
	defer m.Stop()

	touch(t, filepath.Join(dir, "a.txt"))
	waitForPending(t, m, "a.txt")

	_, err = m.Save(context.Background())
	assert.True(t, errors.IsPersistError(err))
	assert.True(t, m.IsDirty())
	assert.NotEmpty(t, m.Pending())
	store.AssertExpectations(t)
}

func TestMonitorReset(t *testing.T) {
	store := new(MockEventStore)
	m, err := NewMonitor(store, MonitorConfig{Logger: zap.NewNop()})
	require.NoError(t, err)

	m.accumulator.OnEvent(models.NewEventRecord(models.EventCreated, "/d/a.txt", time.Now()))

	store.On("Clear", mock.Anything).Return(fmt.Errorf("locked")).Once()
	assert.Error(t, m.Reset(context.Background()))
	assert.Len(t, m.Pending(), 1)

	store.On("Clear", mock.Anything).Return(nil).Once()
	require.NoError(t, m.Reset(context.Background()))
	assert.Empty(t, m.Pending())
	assert.False(t, m.IsDirty())
	store.AssertExpectations(t)
}

func TestMonitorSubscribePassthrough(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMonitor(openStore(t), MonitorConfig{Logger: zap.NewNop()})
	require.NoError(t, err)

	seen := make(chan models.EventRecord, 16)
	unsubscribe := m.Subscribe(bus.SubscriberFunc(func(e models.EventRecord) { seen <- e }))
	defer unsubscribe()

	require.NoError(t, m.Start(context.Background(), dir))
	defer m.Stop()

	touch(t, filepath.Join(dir, "b.md"))

	select {
	case e := <-seen:
		assert.Equal(t, "b.md", e.FileName)
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered to extra subscriber")
	}
}

func TestMonitorResetWaitsForSave(t *testing.T) {
	store := new(MockEventStore)
	m, err := NewMonitor(store, MonitorConfig{Logger: zap.NewNop()})
	require.NoError(t, err)

	m.accumulator.OnEvent(models.NewEventRecord(models.EventCreated, "/d/a.txt", time.Now()))

	entered := make(chan struct{})
	release := make(chan struct{})
	store.On("Append", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil).Once()
	store.On("Clear", mock.Anything).Return(nil).Once()

	saveDone := make(chan error, 1)
	go func() {
		_, err := m.Save(context.Background())
		saveDone <- err
	}()
	<-entered

	resetDone := make(chan error, 1)
	go func() { resetDone <- m.Reset(context.Background()) }()

	select {
	case <-resetDone:
		t.Fatal("Reset returned while a save was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-saveDone)
	require.NoError(t, <-resetDone)

	require.Len(t, store.Calls, 2)
	assert.Equal(t, "Append", store.Calls[0].Method)
	assert.Equal(t, "Clear", store.Calls[1].Method)
	assert.Empty(t, m.Pending())
	assert.False(t, m.IsDirty())
}
