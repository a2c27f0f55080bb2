package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/audit"
	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/types"
)

// Latest selects the highest committed sequence number on Load
const Latest = -1

// remotePrefix roots every object key in the bucket
const remotePrefix = "checkpoints"

var (
	// ErrBothMediaFailed reports that neither medium committed the save
	ErrBothMediaFailed = errors.New("both checkpoint media failed")

	// ErrIntegrity reports a SHA-256 mismatch on read-back
	ErrIntegrity = errors.New("checkpoint integrity verification failed")
)

// putRetryDelays is the remote upload backoff schedule. One attempt per
// entry; the final delay is never slept.
var putRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// ObjectStore is the remote half of the dual write. *S3Medium satisfies
// it in production.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Store persists job checkpoints on two media, local filesystem and
// remote object store, with a per-job index committed after every save.
// Operations on one job must be serialized by the caller; operations on
// different jobs are safe concurrently.
type Store struct {
	local     *LocalMedium
	remote    ObjectStore
	trail     audit.Recorder
	logger    zerolog.Logger
	putDelays []time.Duration
}

// NewStore creates a dual-medium checkpoint store
func NewStore(local *LocalMedium, remote ObjectStore, trail audit.Recorder) *Store {
	return &Store{
		local:     local,
		remote:    remote,
		trail:     trail,
		logger:    log.WithComponent("checkpoint"),
		putDelays: putRetryDelays,
	}
}

// RemoteKey returns the object key for one checkpoint
func RemoteKey(jobID string, seq int) string {
	return fmt.Sprintf("%s/%s/%06d.ckpt", remotePrefix, jobID, seq)
}

// Save persists data for the job under the given sequence number. Both
// media are attempted; one failure leaves that medium empty in the index
// entry, two failures return ErrBothMediaFailed and commit nothing.
func (s *Store) Save(ctx context.Context, jobID string, seq int, data []byte) (*types.Checkpoint, error) {
	sum := sha256Hex(data)

	ckpt := &types.Checkpoint{
		JobID:     jobID,
		Seq:       seq,
		SizeBytes: int64(len(data)),
		SHA256:    sum,
		CreatedAt: time.Now().UTC(),
	}

	localPath, localErr := s.saveLocal(jobID, seq, data, sum)
	if localErr != nil {
		s.logger.Warn().Err(localErr).Str("job_id", jobID).Int("seq", seq).Msg("Local checkpoint write failed")
		metrics.CheckpointsFailed.WithLabelValues("local").Inc()
	} else {
		ckpt.LocalPath = localPath
	}

	key := RemoteKey(jobID, seq)
	remoteErr := s.saveRemote(ctx, jobID, seq, key, data, sum)
	if remoteErr != nil {
		s.logger.Warn().Err(remoteErr).Str("job_id", jobID).Int("seq", seq).Msg("Remote checkpoint write failed")
		metrics.CheckpointsFailed.WithLabelValues("remote").Inc()
	} else {
		ckpt.RemoteKey = key
	}

	if localErr != nil && remoteErr != nil {
		metrics.CheckpointsFailed.WithLabelValues("both").Inc()
		return nil, fmt.Errorf("%w for job %s: local: %v, remote: %v", ErrBothMediaFailed, jobID, localErr, remoteErr)
	}

	// The absent medium stays empty in the entry; the index records the
	// drift instead of retrying.
	if err := appendIndex(s.local.IndexPath(jobID), entryFromCheckpoint(ckpt)); err != nil {
		return nil, fmt.Errorf("failed to commit index entry: %w", err)
	}

	metrics.CheckpointsSaved.WithLabelValues(jobID).Inc()
	metrics.CheckpointBytes.Add(float64(len(data)))

	s.logger.Info().
		Str("job_id", jobID).
		Int("seq", seq).
		Int64("size", ckpt.SizeBytes).
		Str("local_path", ckpt.LocalPath).
		Str("remote_key", ckpt.RemoteKey).
		Msg("Checkpoint saved")

	return ckpt, nil
}

// Load returns the verified bytes of one checkpoint, local medium
// first. seq Latest selects the newest entry. A missing or
// unrecoverable checkpoint yields nil bytes without an error.
func (s *Store) Load(ctx context.Context, jobID string, seq int) ([]byte, *types.Checkpoint, error) {
	entries, err := readIndex(s.local.IndexPath(jobID))
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return nil, nil, nil
	}

	var entry *indexEntry
	if seq == Latest {
		entry = &entries[len(entries)-1]
	} else {
		for i := range entries {
			if entries[i].Seq == seq {
				entry = &entries[i]
				break
			}
		}
	}
	if entry == nil {
		return nil, nil, nil
	}

	ckpt := entry.checkpoint(jobID)

	if entry.LocalPath != "" {
		if data, err := s.local.Read(entry.LocalPath); err == nil {
			got := sha256Hex(data)
			if got == entry.SHA256 {
				return data, ckpt, nil
			}
			s.auditIntegrity(jobID, entry.Seq, "local", entry.SHA256, got)
		}
	}

	if entry.RemoteKey == "" {
		return nil, nil, nil
	}

	data, err := s.remote.Get(ctx, entry.RemoteKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Int("seq", entry.Seq).Msg("Remote checkpoint fetch failed")
		return nil, nil, nil
	}
	if got := sha256Hex(data); got != entry.SHA256 {
		s.auditIntegrity(jobID, entry.Seq, "remote", entry.SHA256, got)
		return nil, nil, nil
	}

	// Self-heal: restore the local copy from the verified remote bytes.
	if path, err := s.local.Write(jobID, entry.Seq, data); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Int("seq", entry.Seq).Msg("Local self-heal write failed")
	} else {
		ckpt.LocalPath = path
		s.logger.Info().Str("job_id", jobID).Int("seq", entry.Seq).Msg("Local checkpoint copy restored from remote")
	}

	return data, ckpt, nil
}

// LoadLatest returns the newest verified checkpoint for the job
func (s *Store) LoadLatest(ctx context.Context, jobID string) ([]byte, *types.Checkpoint, error) {
	return s.Load(ctx, jobID, Latest)
}

// List returns every committed checkpoint for the job, ordered by seq
func (s *Store) List(jobID string) ([]*types.Checkpoint, error) {
	entries, err := readIndex(s.local.IndexPath(jobID))
	if err != nil {
		return nil, err
	}

	out := make([]*types.Checkpoint, 0, len(entries))
	for i := range entries {
		out = append(out, entries[i].checkpoint(jobID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// NextSeq returns the sequence number the next save should use
func (s *Store) NextSeq(jobID string) (int, error) {
	entries, err := readIndex(s.local.IndexPath(jobID))
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 1, nil
	}
	return entries[len(entries)-1].Seq + 1, nil
}

// PruneOldest removes all but the newest keepN checkpoints. Nothing is
// deleted until at least keepN+1 entries exist. Medium deletion
// failures are logged; the index entry is dropped regardless.
func (s *Store) PruneOldest(ctx context.Context, jobID string, keepN int) error {
	if keepN < 1 {
		return fmt.Errorf("keepN must be at least 1, got %d", keepN)
	}

	indexPath := s.local.IndexPath(jobID)
	entries, err := readIndex(indexPath)
	if err != nil {
		return err
	}
	if len(entries) <= keepN {
		return nil
	}

	doomed := entries[:len(entries)-keepN]
	remaining := entries[len(entries)-keepN:]

	for _, entry := range doomed {
		if entry.LocalPath != "" {
			if err := s.local.Remove(entry.LocalPath); err != nil {
				s.logger.Warn().Err(err).Str("job_id", jobID).Int("seq", entry.Seq).Msg("Failed to remove local checkpoint")
			}
		}
		if entry.RemoteKey != "" {
			if err := s.remote.Delete(ctx, entry.RemoteKey); err != nil {
				s.logger.Warn().Err(err).Str("job_id", jobID).Int("seq", entry.Seq).Msg("Failed to remove remote checkpoint")
			}
		}
	}

	if err := writeIndex(indexPath, remaining); err != nil {
		return err
	}

	s.logger.Info().Str("job_id", jobID).Int("pruned", len(doomed)).Int("kept", len(remaining)).Msg("Old checkpoints pruned")
	return nil
}

// DeleteAll removes every checkpoint and the index for a job, on both
// media. Idempotent; a second call finds nothing and succeeds.
func (s *Store) DeleteAll(ctx context.Context, jobID string) error {
	entries, err := readIndex(s.local.IndexPath(jobID))
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.RemoteKey == "" {
			continue
		}
		if err := s.remote.Delete(ctx, entry.RemoteKey); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Int("seq", entry.Seq).Msg("Failed to remove remote checkpoint")
		}
	}

	if err := s.local.RemoveJob(jobID); err != nil {
		return err
	}

	s.logger.Info().Str("job_id", jobID).Int("deleted", len(entries)).Msg("Checkpoints deleted")
	return nil
}

// saveLocal writes and read-back-verifies the local copy
func (s *Store) saveLocal(jobID string, seq int, data []byte, wantSHA string) (string, error) {
	path, err := s.local.Write(jobID, seq, data)
	if err != nil {
		return "", err
	}

	got, err := s.local.Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read back local checkpoint: %w", err)
	}
	if gotSHA := sha256Hex(got); gotSHA != wantSHA {
		s.auditIntegrity(jobID, seq, "local", wantSHA, gotSHA)
		_ = s.local.Remove(path)
		return "", fmt.Errorf("%w: local read-back mismatch", ErrIntegrity)
	}

	return path, nil
}

// saveRemote uploads with retry and read-back-verifies the remote copy
func (s *Store) saveRemote(ctx context.Context, jobID string, seq int, key string, data []byte, wantSHA string) error {
	var err error
	for attempt, delay := range s.putDelays {
		err = s.remote.Put(ctx, key, data)
		if err == nil {
			break
		}
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Str("key", key).Msg("Remote upload attempt failed")
		if attempt < len(s.putDelays)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err != nil {
		return fmt.Errorf("upload failed after %d attempts: %w", len(s.putDelays), err)
	}

	got, err := s.remote.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read back remote checkpoint: %w", err)
	}
	if gotSHA := sha256Hex(got); gotSHA != wantSHA {
		s.auditIntegrity(jobID, seq, "remote", wantSHA, gotSHA)
		return fmt.Errorf("%w: remote read-back mismatch", ErrIntegrity)
	}

	return nil
}

func (s *Store) auditIntegrity(jobID string, seq int, medium, want, got string) {
	s.trail.Record(audit.Event{
		Type:   audit.EventCheckpointIntegrity,
		Source: "checkpoint",
		Details: map[string]any{
			"job_id":   jobID,
			"seq":      seq,
			"medium":   medium,
			"expected": want,
			"actual":   got,
		},
	})
}

// sha256Hex returns the hex digest recorded in the index
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
