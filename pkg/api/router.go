package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/netmon"
	"github.com/dc1-ops/nexus/pkg/storage"
	"github.com/dc1-ops/nexus/pkg/types"
)

// HeartbeatSource is the slice of the heartbeat aggregator the HTTP
// surface needs. *heartbeat.Aggregator satisfies it.
type HeartbeatSource interface {
	Record(agentID, message string, metadata map[string]any) (*types.HeartbeatRecord, error)
	Statuses() ([]types.AgentStatus, error)
	StatusByName(name string) (*types.AgentStatus, bool, error)
}

// NetworkSource is the slice of the network monitor the HTTP surface
// needs. *netmon.Monitor satisfies it.
type NetworkSource interface {
	Status() (*netmon.Status, error)
}

// JobScheduler is the slice of the checkpoint scheduler command dispatch
// needs. *checkpoint.Scheduler satisfies it.
type JobScheduler interface {
	StartJob(spec types.JobSpec)
	StopJob(jobID string)
	CheckpointNow(ctx context.Context, jobID string) error
	Scheduled() []types.JobSpec
}

// RouterConfig carries everything the route table depends on. Populated
// once in cmd/nexus after all components are up.
type RouterConfig struct {
	// MCToken authenticates heartbeat ingest and command dispatch
	MCToken string

	Heartbeats HeartbeatSource
	Network    NetworkSource
	Scheduler  JobScheduler
	Jobs       storage.JobStore

	// StatusRatePerMin caps GET /status requests per minute (default 60)
	StatusRatePerMin int
}

// NewRouter builds the agent's route table
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.StatusRatePerMin <= 0 {
		cfg.StatusRatePerMin = 60
	}

	hb := &heartbeatHandler{agg: cfg.Heartbeats}
	st := &statusHandler{
		network: cfg.Network,
		limiter: newRateLimiter(cfg.StatusRatePerMin, time.Minute),
	}
	cmd := newCommandHandler(cfg.Scheduler, cfg.Jobs, cfg.Heartbeats, cfg.Network)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger())
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(requireBearer(cfg.MCToken))
		r.Post("/heartbeat", hb.ingest)
		r.Post("/v1/command", cmd.dispatch)
	})

	r.Get("/heartbeat/status", hb.list)
	r.Get("/heartbeat/status/{name}", hb.byName)
	r.Get("/status", st.get)

	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Get("/livez", metrics.LivenessHandler())
	r.Handle("/metrics", metrics.Handler())

	return r
}
