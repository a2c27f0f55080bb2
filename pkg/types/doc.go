/*
Package types defines the core data structures shared across the nexus agent.

This package contains the domain model for the DC1 site orchestration agent:
checkpoints and their index entries, peer heartbeats and derived liveness,
network probe samples and rollups, recovery state machine contexts, alerts,
and the agent command variants. It has no dependencies on other agent
packages, making it safe to import from anywhere.

# Entity Relationships

	┌─────────────────── DOMAIN MODEL ────────────────────────┐
	│                                                          │
	│  JobSpec ──── registered job, owns a save schedule       │
	│     │                                                    │
	│     ▼                                                    │
	│  Checkpoint ── one committed snapshot (seq per job)      │
	│                                                          │
	│  HeartbeatRecord ── insert-only peer liveness signal     │
	│     │                                                    │
	│     ▼ (derived)                                          │
	│  AgentStatus ── alive iff last_seen within threshold     │
	│                                                          │
	│  PingSample ── one probe result                          │
	│     │                                                    │
	│     ▼ (hourly)                                           │
	│  LatencyBucket ── p50/p95/p99 rollup                     │
	│                                                          │
	│  FailureEvent ──► RecoveryContext (FSM, one per          │
	│                   interruption, discarded when terminal) │
	│                                                          │
	│  Alert ── severity-routed, fire-and-forget               │
	└──────────────────────────────────────────────────────────┘

# Severity Levels

Alerts carry one of four severities, routed by the alert router:

  - SeverityCritical: operator DM + group chat + Mission Control, bypasses
    rate limiting
  - SeverityHigh: group chat + Mission Control
  - SeverityMedium: Mission Control only
  - SeverityLow: batched, summarized every 30 minutes

# Recovery States

One RecoveryContext walks these states for a single interruption:

	RUNNING → INTERRUPTION_DETECTED → RECONNECTING → RUNNING
	                                       │
	                                       ▼
	                                  FAILING_OVER → RUNNING
	                                       │
	                                       ▼
	                                  ESCALATING → RESOLVED | FAILED

RESOLVED and FAILED are terminal; the context is discarded after either.

# Checkpoint Semantics

A Checkpoint is committed only after at least one medium holds a
bit-identical copy whose read-back hash equals the SHA-256 computed at write
time. An empty LocalPath or RemoteKey marks that medium absent so operators
can spot drift in the index.

# Usage

	ckpt := types.Checkpoint{
		JobID:     "job-42",
		Seq:       7,
		SizeBytes: 1 << 20,
		SHA256:    digest,
		CreatedAt: time.Now().UTC(),
	}

	cmd := types.AgentCommand{Type: types.CommandStartJob, JobID: "job-42", GPUID: "gpu-a1"}
	switch cmd.Type {
	case types.CommandStartJob:
		// register and start the save scheduler
	case types.CommandStopJob:
		// cancel the save scheduler, deregister
	}

# Design Notes

All types are plain data with JSON tags matching the wire contracts; the
components that own them hold the behavior. Pointer fields (LastSeen,
SilentMinutes, LatencyMs, ResolvedAt) encode "absent" without sentinel
values so JSON nulls round-trip cleanly.
*/
package types
