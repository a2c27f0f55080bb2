package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/types"
)

// defaultSweepInterval is how often the watcher re-checks every guarded GPU
const defaultSweepInterval = 30 * time.Second

// JobSource lists the jobs the watcher guards. *checkpoint.Scheduler
// satisfies it.
type JobSource interface {
	Scheduled() []types.JobSpec
}

// FailureDetector classifies GPU health. *Detector satisfies it.
type FailureDetector interface {
	Detect(ctx context.Context, gpuID string) *types.FailureEvent
}

// IncidentHandler runs the recovery lifecycle for one interruption.
// *Orchestrator satisfies it.
type IncidentHandler interface {
	HandleInterruption(ctx context.Context, jobID, gpuID string, fail types.FailureEvent) *types.RecoveryContext
}

// Watcher sweeps every scheduled job's GPU on a fixed interval and hands
// detected failures to the orchestrator, one in-flight incident per GPU.
type Watcher struct {
	jobs     JobSource
	detector FailureDetector
	handler  IncidentHandler
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	active map[string]bool

	wg sync.WaitGroup
}

// NewWatcher creates a watcher. interval <= 0 selects the default 30s sweep.
func NewWatcher(jobs JobSource, detector FailureDetector, handler IncidentHandler, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Watcher{
		jobs:     jobs,
		detector: detector,
		handler:  handler,
		interval: interval,
		logger:   log.WithComponent("recovery-watch"),
		active:   map[string]bool{},
	}
}

// Run sweeps until ctx is cancelled, then waits for in-flight incidents
// to wind down. Incidents inherit ctx, so cancellation abandons them.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("Recovery watch started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Recovery watch stopping")
			w.wg.Wait()
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep checks every guarded GPU once. Detection is sequential; incident
// handling is not, since one incident can block for minutes.
func (w *Watcher) sweep(ctx context.Context) {
	for _, spec := range w.jobs.Scheduled() {
		if spec.GPUID == "" || w.inFlight(spec.GPUID) {
			continue
		}

		event := w.detector.Detect(ctx, spec.GPUID)
		if event == nil {
			continue
		}

		w.logger.Warn().
			Str("job_id", spec.JobID).
			Str("gpu_id", spec.GPUID).
			Str("type", string(event.Type)).
			Str("detail", event.Detail).
			Msg("Failure detected")

		w.setInFlight(spec.GPUID, true)
		w.wg.Add(1)
		go func(spec types.JobSpec, event types.FailureEvent) {
			defer w.wg.Done()
			defer w.setInFlight(spec.GPUID, false)
			w.handler.HandleInterruption(ctx, spec.JobID, spec.GPUID, event)
		}(spec, *event)
	}
}

func (w *Watcher) inFlight(gpuID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active[gpuID]
}

func (w *Watcher) setInFlight(gpuID string, v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v {
		w.active[gpuID] = true
	} else {
		delete(w.active, gpuID)
	}
}
