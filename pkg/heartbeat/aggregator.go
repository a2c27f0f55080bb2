package heartbeat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/storage"
	"github.com/dc1-ops/nexus/pkg/types"
)

const (
	// SelfName is the name this agent reports its own heartbeats under
	SelfName = "NEXUS"

	// DefaultSilentThreshold is how long a peer may stay quiet before it
	// counts as silent: two hours plus ten minutes grace
	DefaultSilentThreshold = 130 * time.Minute
)

// Aggregator ingests peer heartbeats and derives per-peer liveness.
// Records are insert-only; liveness is computed from the newest record
// per agent at query time.
type Aggregator struct {
	store     storage.HeartbeatStore
	registry  *Registry
	threshold time.Duration
	selfID    string
	logger    zerolog.Logger
}

// NewAggregator creates an aggregator over the given store and registry.
// A zero threshold selects the default.
func NewAggregator(store storage.HeartbeatStore, registry *Registry, threshold time.Duration) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultSilentThreshold
	}

	selfID, ok := registry.IDFor(SelfName)
	if !ok {
		selfID = SelfName
	}

	return &Aggregator{
		store:     store,
		registry:  registry,
		threshold: threshold,
		selfID:    selfID,
		logger:    log.WithComponent("heartbeat"),
	}
}

// Record ingests one heartbeat. The record id, name attribution, and
// UTC timestamp are assigned here; unknown agent ids are attributed to
// the raw id.
func (a *Aggregator) Record(agentID, message string, metadata map[string]any) (*types.HeartbeatRecord, error) {
	rec := &types.HeartbeatRecord{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		AgentName: a.registry.NameFor(agentID),
		Message:   message,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}

	if err := a.store.Insert(rec); err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}

	metrics.HeartbeatsIngested.WithLabelValues(rec.AgentName).Inc()
	a.logger.Debug().Str("agent", rec.AgentName).Str("message", message).Msg("Heartbeat recorded")
	return rec, nil
}

// RecordSelf posts a heartbeat on the agent's own behalf. Best-effort;
// failures are logged, not returned.
func (a *Aggregator) RecordSelf(message string) {
	if _, err := a.Record(a.selfID, message, nil); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record self-heartbeat")
	}
}

// Statuses derives the liveness view of every registered peer, ordered
// by name. A peer with no recorded heartbeat is not alive.
func (a *Aggregator) Statuses() ([]types.AgentStatus, error) {
	latest, err := a.store.Latest()
	if err != nil {
		return nil, fmt.Errorf("failed to load latest heartbeats: %w", err)
	}

	now := time.Now().UTC()
	out := make([]types.AgentStatus, 0, len(a.registry.Names()))
	for _, name := range a.registry.Names() {
		id, _ := a.registry.IDFor(name)
		status := types.AgentStatus{AgentName: name, AgentID: id}

		if rec, ok := latest[id]; ok {
			ts := rec.Timestamp
			silent := now.Sub(ts).Minutes()
			status.LastSeen = &ts
			status.SilentMinutes = &silent
			status.Alive = silent < a.threshold.Minutes()
			status.Message = rec.Message
		}

		out = append(out, status)
	}
	return out, nil
}

// StatusByName returns one peer's derived status. Matching is
// case-insensitive; ok is false for unregistered names.
func (a *Aggregator) StatusByName(name string) (*types.AgentStatus, bool, error) {
	statuses, err := a.Statuses()
	if err != nil {
		return nil, false, err
	}

	for i := range statuses {
		if strings.EqualFold(statuses[i].AgentName, name) {
			return &statuses[i], true, nil
		}
	}
	return nil, false, nil
}

// Silent returns the peers currently past the silence threshold
func (a *Aggregator) Silent() ([]types.AgentStatus, error) {
	statuses, err := a.Statuses()
	if err != nil {
		return nil, err
	}

	var silent []types.AgentStatus
	for _, s := range statuses {
		if !s.Alive {
			silent = append(silent, s)
		}
	}
	return silent, nil
}
