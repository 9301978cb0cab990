package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rusenback/erpmon/internal/model"
)

func TestWriteFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	now := time.Now()
	s.Write("bc", model.NormalizedStats{CPUPercent: 10, MemoryPercent: 20, Timestamp: now.Add(-2 * time.Second)})
	s.Write("bc", model.NormalizedStats{CPUPercent: 30, MemoryPercent: 40, Timestamp: now.Add(-time.Second), Warning: "stats limited under isolation", IsIsolatedContainer: true})
	s.Write("other", model.NormalizedStats{CPUPercent: 99, Timestamp: now})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = NewStorage(dir, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	points, err := s.Query("bc", Range30Min)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 10.0, points[0].CPUPercent)
	assert.Equal(t, 40.0, points[1].MemoryPercent)

	var warning string
	var isolated bool
	require.NoError(t, s.db.QueryRow(
		`SELECT warning, isolated FROM container_stats WHERE cpu_percent = 30`).Scan(&warning, &isolated))
	assert.Equal(t, "stats limited under isolation", warning)
	assert.True(t, isolated)
}

func TestQueryAggregatesBuckets(t *testing.T) {
	s, err := NewStorage(t.TempDir(), time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	// Both samples fall into the same 30s bucket.
	minute := time.Now().Add(-10 * time.Minute).Truncate(time.Minute)
	require.NoError(t, s.insert([]sample{
		{containerID: "bc", stats: model.NormalizedStats{CPUPercent: 10, Timestamp: minute}},
		{containerID: "bc", stats: model.NormalizedStats{CPUPercent: 30, Timestamp: minute.Add(10 * time.Second)}},
	}))

	points, err := s.Query("bc", Range1Hour)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 20.0, points[0].CPUPercent)
}

func TestPrune(t *testing.T) {
	s, err := NewStorage(t.TempDir(), time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.insert([]sample{
		{containerID: "bc", stats: model.NormalizedStats{Timestamp: old}},
		{containerID: "bc", stats: model.NormalizedStats{Timestamp: time.Now()}},
	}))

	n, err := s.prune(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	points, err := s.Query("bc", Range1Week)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestRecordContainer(t *testing.T) {
	s, err := NewStorage(t.TempDir(), time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	first := time.Unix(1_700_000_000, 0)
	c := model.Container{ID: "abc123", Name: "bc", Image: "mcr.microsoft.com/businesscentral"}
	require.NoError(t, s.RecordContainer(c, first))
	c.Name = "bc-renamed"
	require.NoError(t, s.RecordContainer(c, first.Add(time.Minute)))

	var name string
	var firstSeen, lastSeen int64
	require.NoError(t, s.db.QueryRow(`SELECT name, first_seen, last_seen FROM containers WHERE id = ?`, "abc123").
		Scan(&name, &firstSeen, &lastSeen))
	assert.Equal(t, "bc-renamed", name)
	assert.Equal(t, first.Unix(), firstSeen)
	assert.Equal(t, first.Add(time.Minute).Unix(), lastSeen)
}

func TestTimeRange(t *testing.T) {
	assert.Equal(t, "6hours", Range6Hour.String())
	assert.Equal(t, 7*24*time.Hour, Range1Week.Duration())
	assert.Equal(t, int64(0), Range30Min.bucketSeconds())
	assert.Equal(t, int64(300), Range6Hour.bucketSeconds())
	assert.Equal(t, "unknown", TimeRange(9).String())
	assert.Equal(t, 30*time.Minute, TimeRange(-1).Duration())
}

func TestReopenKeepsSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStorage(dir, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow(`PRAGMA user_version`).Scan(&version))
	assert.Equal(t, len(migrations), version)
}
