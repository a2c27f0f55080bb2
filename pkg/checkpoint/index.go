package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dc1-ops/nexus/pkg/types"
)

// indexEntry is one row of a job's meta.json. An empty LocalPath or
// RemoteKey marks the medium that failed at save time.
type indexEntry struct {
	Seq       int       `json:"seq"`
	SHA256    string    `json:"sha256"`
	SizeBytes int64     `json:"size"`
	LocalPath string    `json:"local_path"`
	RemoteKey string    `json:"remote_key"`
	SavedAt   time.Time `json:"saved_at"`
}

func entryFromCheckpoint(c *types.Checkpoint) indexEntry {
	return indexEntry{
		Seq:       c.Seq,
		SHA256:    c.SHA256,
		SizeBytes: c.SizeBytes,
		LocalPath: c.LocalPath,
		RemoteKey: c.RemoteKey,
		SavedAt:   c.CreatedAt,
	}
}

func (e indexEntry) checkpoint(jobID string) *types.Checkpoint {
	return &types.Checkpoint{
		JobID:     jobID,
		Seq:       e.Seq,
		SizeBytes: e.SizeBytes,
		SHA256:    e.SHA256,
		CreatedAt: e.SavedAt,
		LocalPath: e.LocalPath,
		RemoteKey: e.RemoteKey,
	}
}

// readIndex loads a job's index. A missing file is an empty index.
func readIndex(path string) ([]indexEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var entries []indexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return entries, nil
}

// writeIndex rewrites a job's index atomically
func writeIndex(path string, entries []indexEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// appendIndex commits one new entry at the end of the index
func appendIndex(path string, entry indexEntry) error {
	entries, err := readIndex(path)
	if err != nil {
		return err
	}
	return writeIndex(path, append(entries, entry))
}
