package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc1-ops/nexus/pkg/types"
)

func TestBoltJobStoreRoundTrip(t *testing.T) {
	store, err := NewBoltJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	job := &types.JobSpec{
		JobID:         "job-42",
		GPUID:         "gpu-a",
		ContainerID:   "ctr-1",
		SaveIntervalS: 3600,
		RegisteredAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(job))

	got, err := store.Get("job-42")
	require.NoError(t, err)
	assert.Equal(t, job, got)

	jobs, err := store.List()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-42", jobs[0].JobID)

	require.NoError(t, store.Delete("job-42"))
	_, err = store.Get("job-42")
	assert.Error(t, err)
}

func TestBoltJobStorePutOverwrites(t *testing.T) {
	store, err := NewBoltJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(&types.JobSpec{JobID: "job-1", GPUID: "gpu-a"}))
	require.NoError(t, store.Put(&types.JobSpec{JobID: "job-1", GPUID: "gpu-b"}))

	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "gpu-b", got.GPUID)

	jobs, err := store.List()
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestBoltJobStoreDeleteAbsentIsNoOp(t *testing.T) {
	store, err := NewBoltJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Delete("never-registered"))
}

func TestHeartbeatStoreLatestPerAgent(t *testing.T) {
	store, err := NewSQLiteHeartbeatStore(filepath.Join(t.TempDir(), "hb.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*types.HeartbeatRecord{
		{ID: "1", AgentID: "a1", AgentName: "NEXUS", Message: "old", Timestamp: base},
		{ID: "2", AgentID: "a1", AgentName: "NEXUS", Message: "new", Timestamp: base.Add(time.Minute)},
		{ID: "3", AgentID: "a2", AgentName: "SENTINEL", Metadata: map[string]any{"gpu": "gpu-a"}, Timestamp: base},
	}
	for _, rec := range records {
		require.NoError(t, store.Insert(rec))
	}

	latest, err := store.Latest()
	require.NoError(t, err)
	require.Len(t, latest, 2)

	assert.Equal(t, "new", latest["a1"].Message)
	assert.True(t, latest["a1"].Timestamp.Equal(base.Add(time.Minute)))
	assert.Equal(t, "gpu-a", latest["a2"].Metadata["gpu"])
}

func TestHeartbeatStoreRejectsDuplicateID(t *testing.T) {
	store, err := NewSQLiteHeartbeatStore(filepath.Join(t.TempDir(), "hb.db"))
	require.NoError(t, err)
	defer store.Close()

	rec := &types.HeartbeatRecord{ID: "dup", AgentID: "a1", AgentName: "NEXUS", Timestamp: time.Now()}
	require.NoError(t, store.Insert(rec))
	assert.Error(t, store.Insert(rec))
}

func TestMetricStoreSamplesSince(t *testing.T) {
	store, err := NewSQLiteMetricStore(filepath.Join(t.TempDir(), "net.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	latency := 12.5
	samples := []*types.PingSample{
		{Timestamp: base, Target: "8.8.8.8", LatencyMs: &latency, Success: true},
		{Timestamp: base.Add(10 * time.Second), Target: "1.1.1.1", Success: false},
		{Timestamp: base.Add(20 * time.Second), Target: "8.8.8.8", LatencyMs: &latency, Success: true},
	}
	for _, s := range samples {
		require.NoError(t, store.InsertSample(s))
	}

	got, err := store.SamplesSince(base.Add(5 * time.Second))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Oldest first, failed sample keeps a nil latency
	assert.True(t, got[0].Timestamp.Equal(base.Add(10*time.Second)))
	assert.False(t, got[0].Success)
	assert.Nil(t, got[0].LatencyMs)
	assert.True(t, got[1].Success)
	require.NotNil(t, got[1].LatencyMs)
	assert.Equal(t, 12.5, *got[1].LatencyMs)
}

func TestMetricStoreRollupsAndPrune(t *testing.T) {
	store, err := NewSQLiteMetricStore(filepath.Join(t.TempDir(), "net.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	latency := 8.0
	require.NoError(t, store.InsertSample(&types.PingSample{Timestamp: base, Target: "8.8.8.8", LatencyMs: &latency, Success: true}))
	require.NoError(t, store.InsertSample(&types.PingSample{Timestamp: base.Add(time.Hour), Target: "8.8.8.8", LatencyMs: &latency, Success: true}))

	buckets := []*types.LatencyBucket{
		{Bucket: "2026-03-01-11", P50: 10, P95: 20, P99: 30, Count: 360},
		{Bucket: "2026-03-01-12", P50: 11, P95: 21, P99: 31, Count: 360},
	}
	for _, b := range buckets {
		require.NoError(t, store.UpsertBucket(b))
	}

	recent, err := store.RecentBuckets(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2026-03-01-12", recent[0].Bucket) // newest first

	require.NoError(t, store.Prune(base.Add(30*time.Minute), "2026-03-01-12"))

	remaining, err := store.SamplesSince(time.Time{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.True(t, remaining[0].Timestamp.Equal(base.Add(time.Hour)))

	recent, err = store.RecentBuckets(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2026-03-01-12", recent[0].Bucket)
}

func TestMetricStoreUpsertReplacesBucket(t *testing.T) {
	store, err := NewSQLiteMetricStore(filepath.Join(t.TempDir(), "net.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.UpsertBucket(&types.LatencyBucket{Bucket: "2026-03-01-12", P50: 10, P95: 20, P99: 30, Count: 100}))
	require.NoError(t, store.UpsertBucket(&types.LatencyBucket{Bucket: "2026-03-01-12", P50: 12, P95: 22, P99: 32, Count: 200}))

	recent, err := store.RecentBuckets(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 200, recent[0].Count)
	assert.Equal(t, 12.0, recent[0].P50)
}
