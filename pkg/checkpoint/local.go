package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultBasePath is the local checkpoint root on the site NAS mount
	DefaultBasePath = "/var/dc1/checkpoints"

	// indexFile is the per-job index filename
	indexFile = "meta.json"
)

// LocalMedium is the filesystem half of the dual write. Layout:
//
//	<base>/<jobId>/000001.ckpt
//	<base>/<jobId>/meta.json
type LocalMedium struct {
	basePath string
}

// NewLocalMedium creates a local medium rooted at basePath
func NewLocalMedium(basePath string) (*LocalMedium, error) {
	if basePath == "" {
		basePath = DefaultBasePath
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &LocalMedium{basePath: basePath}, nil
}

// JobDir returns the directory holding one job's checkpoints
func (m *LocalMedium) JobDir(jobID string) string {
	return filepath.Join(m.basePath, jobID)
}

// ObjectPath returns the path of one checkpoint file
func (m *LocalMedium) ObjectPath(jobID string, seq int) string {
	return filepath.Join(m.JobDir(jobID), fmt.Sprintf("%06d.ckpt", seq))
}

// IndexPath returns the path of one job's index file
func (m *LocalMedium) IndexPath(jobID string) string {
	return filepath.Join(m.JobDir(jobID), indexFile)
}

// Write atomically persists one checkpoint file and returns its path
func (m *LocalMedium) Write(jobID string, seq int, data []byte) (string, error) {
	path := m.ObjectPath(jobID, seq)
	if err := atomicWrite(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Read returns the contents of one checkpoint file
func (m *LocalMedium) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	return data, nil
}

// Remove deletes one checkpoint file. Missing files are not an error.
func (m *LocalMedium) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	return nil
}

// RemoveJob deletes a job's whole checkpoint directory, index included
func (m *LocalMedium) RemoveJob(jobID string) error {
	if err := os.RemoveAll(m.JobDir(jobID)); err != nil {
		return fmt.Errorf("failed to remove checkpoint directory: %w", err)
	}
	return nil
}

// atomicWrite lands data at path via a temp file in the same directory,
// fsync, then rename. Readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ckpt-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
