package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func run(id, kind string, exit int, at time.Time) RunRecord {
	return RunRecord{
		RunID:      id,
		Kind:       kind,
		Target:     "/src/tools.py",
		ScriptPath: "/tmp/staging/" + kind + ".py",
		Command:    "python3 -u /tmp/staging/" + kind + ".py",
		ExitCode:   exit,
		StartedAt:  at,
		DurationMs: 12,
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openMemory(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)

	rec := run("r1", "selection", 0, at)
	rec.StdoutBytes = 42
	require.NoError(t, s.Record(rec))

	got, err := s.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, "selection", got.Kind)
	assert.Equal(t, int64(42), got.StdoutBytes)
	assert.True(t, got.StartedAt.Equal(at))
	assert.True(t, got.Succeeded())

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRequiresRunID(t *testing.T) {
	s := openMemory(t)
	assert.Error(t, s.Record(RunRecord{Kind: "selection"}))
}

func TestRecordReplacesSameRunID(t *testing.T) {
	s := openMemory(t)
	at := time.Now()
	require.NoError(t, s.Record(run("r1", "function", 0, at)))
	require.NoError(t, s.Record(run("r1", "function", 5, at)))

	all, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 5, all[0].ExitCode)
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := openMemory(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		kind := "selection"
		if i%2 == 1 {
			kind = "function"
		}
		require.NoError(t, s.Record(run(fmt.Sprintf("r%d", i), kind, 0, base.Add(time.Duration(i)*time.Second))))
	}

	recent, err := s.Recent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"r4", "r3", "r2"}, []string{recent[0].RunID, recent[1].RunID, recent[2].RunID})

	all, err := s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	fns, err := s.RecentByKind("function", 10)
	require.NoError(t, err)
	require.Len(t, fns, 2)
	assert.Equal(t, "r3", fns[0].RunID)
}

func TestRecentEmpty(t *testing.T) {
	s := openMemory(t)
	got, err := s.Recent(10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStats(t *testing.T) {
	s := openMemory(t)
	now := time.Now()
	require.NoError(t, s.Record(run("a", "selection", 0, now)))
	require.NoError(t, s.Record(run("b", "selection", 1, now)))
	require.NoError(t, s.Record(run("c", "function", 2, now)))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 2, stats.FailedRuns)
	assert.Equal(t, map[string]int{"selection": 2, "function": 1}, stats.KindBreakdown)
}

func TestPrune(t *testing.T) {
	s := openMemory(t)
	base := time.Now()
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Record(run(fmt.Sprintf("r%d", i), "selection", 0, base.Add(time.Duration(i)*time.Minute))))
	}

	n, err := s.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	left, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "r5", left[0].RunID)
	assert.Equal(t, "r4", left[1].RunID)

	_, err = s.Prune(-1)
	assert.Error(t, err)
}

func TestOpenOnDiskPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(run("disk", "function", 0, time.Now())))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is harmless")

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get("disk")
	require.NoError(t, err)
	assert.Equal(t, "function", got.Kind)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Record(run("late", "selection", 0, time.Now())), ErrClosed)
	_, err = s.Recent(1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Prune(1)
	assert.ErrorIs(t, err, ErrClosed)
}
