package storage

import (
	"time"

	"github.com/dc1-ops/nexus/pkg/types"
)

// HeartbeatStore persists peer heartbeat records. Records are insert-only;
// a duplicate record ID is rejected.
type HeartbeatStore interface {
	Insert(rec *types.HeartbeatRecord) error
	// Latest returns the newest record per agent ID.
	Latest() (map[string]*types.HeartbeatRecord, error)
	Close() error
}

// MetricStore persists network probe samples and their hourly rollups
type MetricStore interface {
	InsertSample(s *types.PingSample) error
	// SamplesSince returns all samples with a timestamp >= since, oldest first.
	SamplesSince(since time.Time) ([]*types.PingSample, error)
	// UpsertBucket inserts or replaces one hourly latency rollup.
	UpsertBucket(b *types.LatencyBucket) error
	// RecentBuckets returns the newest hourly rollups, newest first.
	RecentBuckets(limit int) ([]*types.LatencyBucket, error)
	// Prune deletes samples older than cutoff and rollups whose bucket key
	// sorts before bucketCutoff (bucket keys are YYYY-MM-DD-HH, so string
	// order is time order).
	Prune(cutoff time.Time, bucketCutoff string) error
	Close() error
}

// JobStore persists registered jobs so checkpoint scheduling survives
// agent restarts
type JobStore interface {
	Put(job *types.JobSpec) error
	Get(jobID string) (*types.JobSpec, error)
	List() ([]*types.JobSpec, error)
	Delete(jobID string) error
	Close() error
}
