// Package storetest holds behaviour tests every event store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/filepulse/filepulse/internal/core/interfaces"
	"github.com/filepulse/filepulse/pkg/errors"
	"github.com/filepulse/filepulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty store. The store is closed by the suite.
type Factory func(t *testing.T) interfaces.EventStore

// At builds a local time on 2024-01-<day>
func At(day, hour, minute, second int) time.Time {
	return time.Date(2024, 1, day, hour, minute, second, 0, time.Local)
}

// Event builds a record for path at the given time
func Event(kind models.EventKind, path string, at time.Time) models.EventRecord {
	return models.NewEventRecord(kind, path, at)
}

// Run executes the whole suite against stores produced by open
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, interfaces.EventStore)
	}{
		{"AppendAndQueryAllRoundTrip", testRoundTrip},
		{"AppendEmptyBatch", testAppendEmpty},
		{"AppendRejectsInvalidRecords", testAppendInvalid},
		{"QueryRecent", testQueryRecent},
		{"QueryRecentRejectsBadLimit", testQueryRecentLimit},
		{"QueryByExtension", testQueryByExtension},
		{"QueryByEventKind", testQueryByEventKind},
		{"QueryByEventKindRejectsBadInput", testQueryByEventKindInput},
		{"DateAndKindScenario", testDateAndKindScenario},
		{"SameSecondOrdersByInsertion", testSameSecondOrder},
		{"ClearIsIdempotent", testClear},
		{"Counts", testCounts},
		{"ConcurrentAppends", testConcurrentAppends},
		{"CloseIsIdempotent", testClose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func names(events []models.EventRecord) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.FileName
	}
	return out
}

func testRoundTrip(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	in := []models.EventRecord{
		Event(models.EventCreated, "/d/a.txt", At(1, 10, 0, 0)),
		Event(models.EventModified, "/d/Report.Java", At(1, 10, 0, 5)),
		Event(models.EventDeleted, "/d/README", At(2, 23, 59, 59)),
	}

	require.NoError(t, s.Append(ctx, in))

	out, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)

	for i := range in {
		assert.Equal(t, in[i].FileName, out[i].FileName)
		assert.Equal(t, in[i].FilePath, out[i].FilePath)
		assert.Equal(t, in[i].FileExtension, out[i].FileExtension)
		assert.Equal(t, in[i].Kind, out[i].Kind)
		assert.True(t, in[i].OccurredAt.Equal(out[i].OccurredAt), "%s != %s", in[i].OccurredAt, out[i].OccurredAt)
	}
	assert.Equal(t, "java", out[1].FileExtension)
	assert.Equal(t, "", out[2].FileExtension)
}

func testAppendEmpty(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, nil))

	out, err := s.QueryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func testAppendInvalid(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	good := Event(models.EventCreated, "/d/a.txt", At(1, 10, 0, 0))
	bad := good
	bad.OccurredAt = time.Time{}

	err := s.Append(ctx, []models.EventRecord{good, bad})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	// nothing from the rejected batch is written
	out, err := s.QueryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func sixEvents() []models.EventRecord {
	var events []models.EventRecord
	for i := 1; i <= 6; i++ {
		events = append(events, Event(models.EventCreated, fmt.Sprintf("/d/f%d.txt", i), At(1, 10, i, 0)))
	}
	return events
}

func testQueryRecent(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, sixEvents()))

	five, err := s.QueryRecent(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"f6.txt", "f5.txt", "f4.txt", "f3.txt", "f2.txt"}, names(five))

	ten, err := s.QueryRecent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"f6.txt", "f5.txt", "f4.txt", "f3.txt", "f2.txt", "f1.txt"}, names(ten))
}

func testQueryRecentLimit(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	for _, limit := range []int{0, -1} {
		_, err := s.QueryRecent(ctx, limit)
		assert.True(t, errors.IsQueryError(err), "limit %d", limit)
	}
}

func testQueryByExtension(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, []models.EventRecord{
		Event(models.EventCreated, "/d/a.txt", At(1, 10, 0, 0)),
		Event(models.EventCreated, "/d/Main.java", At(1, 11, 0, 0)),
		Event(models.EventCreated, "/d/notes.java.bak", At(1, 12, 0, 0)),
	}))

	for _, in := range []string{".java", "java", "JAVA"} {
		out, err := s.QueryByExtension(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, []string{"Main.java"}, names(out), "input %q", in)
	}

	_, err := s.QueryByExtension(ctx, ".")
	assert.True(t, errors.IsQueryError(err))
}

func testQueryByEventKind(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, []models.EventRecord{
		Event(models.EventCreated, "/d/a.txt", At(1, 10, 0, 0)),
		Event(models.EventModified, "/d/a.txt", At(1, 10, 0, 1)),
		Event(models.EventDeleted, "/d/a.txt", At(1, 10, 0, 2)),
		Event(models.EventCreated, "/d/b.txt", At(1, 10, 0, 3)),
	}))

	created, err := s.QueryByEventKind(ctx, models.EventCreated)
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, e := range created {
		assert.Equal(t, models.EventCreated, e.Kind)
	}
	assert.Equal(t, []string{"b.txt", "a.txt"}, names(created))

	two, err := s.QueryByEventKind(ctx, models.EventModified, models.EventDeleted)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, models.EventDeleted, two[0].Kind)
	assert.Equal(t, models.EventModified, two[1].Kind)
}

func testQueryByEventKindInput(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()

	_, err := s.QueryByEventKind(ctx)
	assert.True(t, errors.IsQueryError(err))

	_, err = s.QueryByEventKind(ctx, models.EventKind("Renamed"))
	assert.True(t, errors.IsQueryError(err))
}

func testDateAndKindScenario(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, []models.EventRecord{
		Event(models.EventCreated, "/d/a.txt", At(1, 10, 0, 0)),
		Event(models.EventDeleted, "/d/b.txt", At(2, 11, 0, 0)),
	}))

	day, err := time.ParseInLocation(models.DateLayout, "2024-01-01", time.Local)
	require.NoError(t, err)

	onDay, err := s.QueryByDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, "a.txt", onDay[0].FileName)
	assert.Equal(t, "/d/a.txt", onDay[0].FilePath)

	deleted, err := s.QueryByEventKind(ctx, models.EventDeleted)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "b.txt", deleted[0].FileName)
	assert.Equal(t, "/d/b.txt", deleted[0].FilePath)

	none, err := s.QueryByDate(ctx, At(3, 0, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSameSecondOrder(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	at := At(1, 9, 0, 0)
	require.NoError(t, s.Append(ctx, []models.EventRecord{
		Event(models.EventCreated, "/d/first.txt", at),
		Event(models.EventCreated, "/d/second.txt", at),
	}))

	recent, err := s.QueryRecent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"second.txt", "first.txt"}, names(recent))

	byDate, err := s.QueryByDate(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, []string{"second.txt", "first.txt"}, names(byDate))
}

func testClear(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, sixEvents()))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	out, err := s.QueryAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)

	// the store stays usable after a clear
	require.NoError(t, s.Append(ctx, sixEvents()[:1]))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testCounts(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, []models.EventRecord{
		Event(models.EventCreated, "/d/a.txt", At(1, 10, 0, 0)),
		Event(models.EventCreated, "/d/b.txt", At(1, 10, 0, 1)),
		Event(models.EventDeleted, "/d/a.txt", At(1, 10, 0, 2)),
	}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byKind, err := s.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.EventKind]int{
		models.EventCreated: 2,
		models.EventDeleted: 1,
	}, byKind)
}

func testConcurrentAppends(t *testing.T, s interfaces.EventStore) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				e := Event(models.EventModified, fmt.Sprintf("/d/g%d-%d.txt", g, i), At(1, 12, g, i))
				assert.NoError(t, s.Append(ctx, []models.EventRecord{e}))
				_, err := s.QueryRecent(ctx, 5)
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
}

func testClose(t *testing.T, s interfaces.EventStore) {
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.QueryAll(context.Background())
	assert.Error(t, err)
}
