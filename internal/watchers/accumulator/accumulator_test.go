package accumulator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSink is a mock implementation of Sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Append(ctx context.Context, events []models.EventRecord) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// memorySink records everything it is given
type memorySink struct {
	mu     sync.Mutex
	events []models.EventRecord
	hook   func()
}

func (s *memorySink) Append(_ context.Context, events []models.EventRecord) error {
	if s.hook != nil {
		s.hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memorySink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func record(i int) models.EventRecord {
	at := time.Date(2024, 1, 1, 10, 0, i, 0, time.Local)
	return models.NewEventRecord(models.EventCreated, fmt.Sprintf("/d/f%d.txt", i), at)
}

func TestOnEventMarksDirty(t *testing.T) {
	a := New(zap.NewNop())
	assert.False(t, a.IsDirty())

	a.OnEvent(record(1))
	a.OnEvent(record(2))

	assert.True(t, a.IsDirty())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []models.EventRecord{record(1), record(2)}, a.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))

	snap := a.Snapshot()
	snap[0].FileName = "changed"

	assert.Equal(t, "f1.txt", a.Snapshot()[0].FileName)
}

func TestFlushSuccessClearsDirty(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))
	a.OnEvent(record(2))

	sink := new(MockSink)
	sink.On("Append", mock.Anything, []models.EventRecord{record(1), record(2)}).Return(nil).Once()

	n, err := a.Flush(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.False(t, a.IsDirty())
	assert.Equal(t, 0, a.Len())
	assert.False(t, a.LastFlush().IsZero())
	sink.AssertExpectations(t)
}

func TestFlushFailureKeepsEverything(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))

	sink := new(MockSink)
	sink.On("Append", mock.Anything, mock.Anything).Return(fmt.Errorf("disk full")).Once()

	n, err := a.Flush(context.Background(), sink)
	require.Error(t, err)

	assert.Equal(t, 0, n)
	assert.True(t, errors.IsPersistError(err))
	assert.True(t, a.IsDirty())
	assert.Equal(t, []models.EventRecord{record(1)}, a.Snapshot())
	sink.AssertExpectations(t)
}

func TestFlushKeepsTypedStoreError(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))

	storeErr := errors.NewValidationError("file path is required", nil)
	sink := new(MockSink)
	sink.On("Append", mock.Anything, mock.Anything).Return(storeErr)

	_, err := a.Flush(context.Background(), sink)
	assert.Same(t, storeErr, err)
}

func TestFlushEmptyDoesNotCallSink(t *testing.T) {
	a := New(zap.NewNop())
	sink := new(MockSink)

	n, err := a.Flush(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 0, n)
	sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestEventsArrivingDuringFlushStayPending(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))

	sink := &memorySink{}
	sink.hook = func() { a.OnEvent(record(2)) }

	n, err := a.Flush(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.True(t, a.IsDirty())
	assert.Equal(t, []models.EventRecord{record(2)}, a.Snapshot())
}

func TestClearDuringFlushWins(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))

	sink := &memorySink{}
	sink.hook = func() { a.Clear() }

	_, err := a.Flush(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 0, a.Len())
	assert.False(t, a.IsDirty())
}

func TestClear(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))
	a.Clear()

	assert.Equal(t, 0, a.Len())
	assert.False(t, a.IsDirty())
}

func TestRunAutosavesAndFlushesOnCancel(t *testing.T) {
	a := New(zap.NewNop())
	sink := &memorySink{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		a.Run(ctx, sink, 20*time.Millisecond)
		close(done)
	}()

	a.OnEvent(record(1))
	require.Eventually(t, func() bool { return sink.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.OnEvent(record(2))
	cancel()
	<-done

	assert.Equal(t, 2, sink.len())
	assert.False(t, a.IsDirty())
}

func TestConcurrentOnEventAndFlush(t *testing.T) {
	a := New(zap.NewNop())
	sink := &memorySink{}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				a.OnEvent(record(base*25 + j))
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_, _ = a.Flush(context.Background(), sink)
		}
	}()
	wg.Wait()

	_, err := a.Flush(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 100, sink.len())
	assert.False(t, a.IsDirty())
}

// gatedStore holds Append until release is closed
type gatedStore struct {
	memorySink
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) Append(ctx context.Context, events []models.EventRecord) error {
	close(s.entered)
	<-s.release
	return s.memorySink.Append(ctx, events)
}

func (s *gatedStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}

func TestResetWaitsForFlushInProgress(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))
	store := newGatedStore()

	flushDone := make(chan error, 1)
	go func() {
		_, err := a.Flush(context.Background(), store)
		flushDone <- err
	}()
	<-store.entered

	resetDone := make(chan error, 1)
	go func() { resetDone <- a.Reset(context.Background(), store) }()

	select {
	case <-resetDone:
		t.Fatal("Reset returned while a flush was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-flushDone)
	require.NoError(t, <-resetDone)

	assert.Equal(t, 0, store.len())
	assert.Equal(t, 0, a.Len())
	assert.False(t, a.IsDirty())
}

func TestResetKeepsPendingWhenClearFails(t *testing.T) {
	a := New(zap.NewNop())
	a.OnEvent(record(1))

	store := new(MockStore)
	store.On("Clear", mock.Anything).Return(fmt.Errorf("locked"))

	assert.Error(t, a.Reset(context.Background(), store))
	assert.Equal(t, 1, a.Len())
	assert.True(t, a.IsDirty())
	store.AssertExpectations(t)
}

// MockStore is a mock implementation of Clearer
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
