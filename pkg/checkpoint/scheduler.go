package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/types"
)

// JobStates fetches job state snapshots. *mc.Client satisfies it.
type JobStates interface {
	GetJob(ctx context.Context, jobID string) (*types.JobStatus, error)
}

// Alerter routes alerts raised by the scheduler. *alert.Router
// satisfies it.
type Alerter interface {
	Route(a *types.Alert)
}

// Heartbeater records the agent's own liveness after successful saves
type Heartbeater interface {
	RecordSelf(message string)
}

// SchedulerConfig holds scheduler tunables
type SchedulerConfig struct {
	// SaveInterval is the default per-job save period, used when a
	// JobSpec carries none (default: 1 hour)
	SaveInterval time.Duration

	// KeepN is how many checkpoints survive the post-save prune
	// (default: 3)
	KeepN int
}

// Scheduler runs one checkpoint loop per registered job. Every tick it
// pulls the job's state from Mission Control, saves it under the next
// sequence number, and prunes old checkpoints. A loop that hits
// ErrBothMediaFailed pages the operator and pauses itself; other loops
// are unaffected.
type Scheduler struct {
	store  *Store
	jobs   JobStates
	alerts Alerter
	beat   Heartbeater
	config SchedulerConfig
	logger zerolog.Logger

	mu    sync.Mutex
	loops map[string]*jobLoop
	wg    sync.WaitGroup
}

type jobLoop struct {
	spec   types.JobSpec
	cancel context.CancelFunc
}

// NewScheduler creates a checkpoint scheduler with no jobs registered
func NewScheduler(store *Store, jobs JobStates, alerts Alerter, beat Heartbeater, config SchedulerConfig) *Scheduler {
	if config.SaveInterval <= 0 {
		config.SaveInterval = time.Hour
	}
	if config.KeepN < 1 {
		config.KeepN = 3
	}

	return &Scheduler{
		store:  store,
		jobs:   jobs,
		alerts: alerts,
		beat:   beat,
		config: config,
		logger: log.WithComponent("checkpoint-scheduler"),
		loops:  make(map[string]*jobLoop),
	}
}

// StartJob begins the periodic checkpoint loop for one job. A job that
// is already scheduled is left untouched.
func (s *Scheduler) StartJob(spec types.JobSpec) {
	interval := time.Duration(spec.SaveIntervalS) * time.Second
	if interval <= 0 {
		interval = s.config.SaveInterval
	}

	s.mu.Lock()
	if _, ok := s.loops[spec.JobID]; ok {
		s.mu.Unlock()
		s.logger.Debug().Str("job_id", spec.JobID).Msg("Job already scheduled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.loops[spec.JobID] = &jobLoop{spec: spec, cancel: cancel}
	metrics.ScheduledJobs.Inc()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runJob(ctx, spec, interval)

	s.logger.Info().Str("job_id", spec.JobID).Dur("interval", interval).Msg("Checkpoint loop started")
}

// StopJob cancels a job's checkpoint loop. Unknown jobs are a no-op.
func (s *Scheduler) StopJob(jobID string) {
	s.mu.Lock()
	loop, ok := s.loops[jobID]
	s.mu.Unlock()
	if !ok {
		return
	}

	loop.cancel()
	s.forget(jobID)
	s.logger.Info().Str("job_id", jobID).Msg("Checkpoint loop stopped")
}

// StopAll cancels every loop and waits for them to exit
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, loop := range s.loops {
		loop.cancel()
		delete(s.loops, id)
		metrics.ScheduledJobs.Dec()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Scheduled returns the specs of all jobs with an active loop,
// ordered by job id
func (s *Scheduler) Scheduled() []types.JobSpec {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.JobSpec, 0, len(s.loops))
	for _, loop := range s.loops {
		out = append(out, loop.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// CheckpointNow performs one immediate save for a scheduled job,
// outside its regular tick
func (s *Scheduler) CheckpointNow(ctx context.Context, jobID string) error {
	s.mu.Lock()
	loop, ok := s.loops[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s is not scheduled for checkpoints: %w", jobID, types.ErrNotFound)
	}

	return s.saveOnce(ctx, loop.spec)
}

// runJob is one job's checkpoint loop. The first save happens one full
// interval after start.
func (s *Scheduler) runJob(ctx context.Context, spec types.JobSpec, interval time.Duration) {
	defer s.wg.Done()

	logger := s.logger.With().Str("job_id", spec.JobID).Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := s.saveOnce(ctx, spec)
			if err == nil {
				continue
			}
			if errors.Is(err, ErrBothMediaFailed) {
				logger.Error().Err(err).Msg("Both checkpoint media failed, pausing loop")
				s.alerts.Route(&types.Alert{
					Severity:    types.SeverityCritical,
					SourceAgent: "NEXUS",
					Title:       "Checkpoint scheduler paused",
					Message:     fmt.Sprintf("Both stores failed for job %s — scheduler paused", spec.JobID),
					Metadata:    map[string]string{"job_id": spec.JobID},
				})
				s.forget(spec.JobID)
				return
			}
			logger.Error().Err(err).Msg("Checkpoint save failed")
		case <-ctx.Done():
			logger.Info().Msg("Checkpoint loop cancelled")
			return
		}
	}
}

// saveOnce runs one full save cycle: fetch state, save, prune,
// self-heartbeat
func (s *Scheduler) saveOnce(ctx context.Context, spec types.JobSpec) error {
	status, err := s.jobs.GetJob(ctx, spec.JobID)
	if err != nil {
		return fmt.Errorf("failed to fetch job state: %w", err)
	}

	data, err := statePayload(spec, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to encode job state: %w", err)
	}

	seq, err := s.store.NextSeq(spec.JobID)
	if err != nil {
		return err
	}

	ckpt, err := s.store.Save(ctx, spec.JobID, seq, data)
	if err != nil {
		return err
	}

	if err := s.store.PruneOldest(ctx, spec.JobID, s.config.KeepN); err != nil {
		s.logger.Warn().Err(err).Str("job_id", spec.JobID).Msg("Checkpoint prune failed")
	}

	if s.beat != nil {
		s.beat.RecordSelf(fmt.Sprintf("checkpoint saved: %dB", ckpt.SizeBytes))
	}

	return nil
}

// forget drops a loop's bookkeeping. Safe to call more than once.
func (s *Scheduler) forget(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loops[jobID]; ok {
		delete(s.loops, jobID)
		metrics.ScheduledJobs.Dec()
	}
}

// statePayload serializes one state snapshot. The envelope keys ride
// alongside whatever state Mission Control reported.
func statePayload(spec types.JobSpec, status *types.JobStatus, now time.Time) ([]byte, error) {
	payload := map[string]any{
		"job_id":       spec.JobID,
		"container_id": spec.ContainerID,
		"saved_at":     now.UTC().Format("20060102T150405Z"),
	}
	for k, v := range status.State {
		payload[k] = v
	}
	return json.Marshal(payload)
}
