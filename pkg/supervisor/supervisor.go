package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/alert"
	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/types"
)

const maxRestarts = 3

// Task is one long-running activity. It must return promptly once ctx
// is cancelled.
type Task func(ctx context.Context)

// Alerter routes the crashed-task alert. *alert.Router satisfies it.
type Alerter interface {
	Route(a *types.Alert)
}

// Supervisor runs tasks in supervised goroutines
type Supervisor struct {
	alerts  Alerter
	logger  zerolog.Logger
	backoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a supervisor with its own root context
func New(alerts Alerter) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		alerts:  alerts,
		logger:  log.WithComponent("supervisor"),
		backoff: time.Second,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Go starts task under supervision. A panic is recovered and the task
// restarted after a backoff; after maxRestarts panics it stays down and
// the operator is paged. A normal return is final.
func (s *Supervisor) Go(name string, task Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		restarts := 0
		for {
			if !s.runOnce(name, task) {
				return
			}
			if s.ctx.Err() != nil {
				return
			}

			restarts++
			metrics.TaskRestarts.WithLabelValues(name).Inc()
			if restarts > maxRestarts {
				s.logger.Error().
					Str("task", name).
					Int("crashes", restarts).
					Msg("Task crashed repeatedly, leaving it down")
				s.alerts.Route(&types.Alert{
					Severity:    types.SeverityCritical,
					SourceAgent: alert.SelfSource,
					Title:       "Supervised task down",
					Message:     fmt.Sprintf("task %s crashed repeatedly and stays down until the agent restarts", name),
					Metadata:    map[string]string{"task": name},
				})
				return
			}

			s.logger.Warn().
				Str("task", name).
				Int("restart", restarts).
				Msg("Restarting task after panic")

			select {
			case <-time.After(s.backoff):
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// runOnce reports whether the task panicked
func (s *Supervisor) runOnce(name string, task Task) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			s.logger.Error().
				Str("task", name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Task panicked")
		}
	}()

	task(s.ctx)
	return false
}

// Stop cancels every task and waits for them to exit, up to grace
func (s *Supervisor) Stop(grace time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn().Dur("grace", grace).Msg("Tasks still running at shutdown deadline")
	}
}
