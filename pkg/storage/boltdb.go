package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dc1-ops/nexus/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketJobs = []byte("jobs")

// BoltJobStore implements JobStore using BoltDB
type BoltJobStore struct {
	db *bolt.DB
}

// NewBoltJobStore creates a new BoltDB-backed job registry
func NewBoltJobStore(path string) (*BoltJobStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open job registry: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketJobs); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketJobs, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltJobStore{db: db}, nil
}

// Put upserts a job registration
func (s *BoltJobStore) Put(job *types.JobSpec) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return b.Put([]byte(job.JobID), data)
	})
}

// Get retrieves a job by ID
func (s *BoltJobStore) Get(jobID string) (*types.JobSpec, error) {
	var job types.JobSpec
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data := b.Get([]byte(jobID))
		if data == nil {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return json.Unmarshal(data, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns all registered jobs
func (s *BoltJobStore) List() ([]*types.JobSpec, error) {
	var jobs []*types.JobSpec
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.ForEach(func(k, v []byte) error {
			var job types.JobSpec
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			jobs = append(jobs, &job)
			return nil
		})
	})
	return jobs, err
}

// Delete removes a job registration. Deleting an absent job is a no-op.
func (s *BoltJobStore) Delete(jobID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.Delete([]byte(jobID))
	})
}

// Close closes the database
func (s *BoltJobStore) Close() error {
	return s.db.Close()
}
