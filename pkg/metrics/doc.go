/*
Package metrics provides Prometheus collectors, component health, and the
exposition endpoint for the agent.

All collectors are package-level variables registered against the default
registry at init, so any package can instrument without setup. The /metrics
endpoint serves the standard text exposition via promhttp.

# Metrics Catalog

Checkpoint:

	nexus_checkpoints_saved_total{job_id}   counter  committed saves per job
	nexus_checkpoints_failed_total{medium}  counter  write failures (local, remote, both)
	nexus_checkpoint_bytes_total            counter  payload bytes written
	nexus_checkpoint_jobs                   gauge    jobs with an active save loop

Alerting:

	nexus_alerts_dispatched_total{severity} counter  alerts that left the router
	nexus_alerts_dropped_total              counter  alerts eaten by the cooldown
	nexus_alerts_batched_total              counter  LOW alerts held for the batch summary

Heartbeats:

	nexus_heartbeats_ingested_total{agent}  counter  accepted heartbeats per peer
	nexus_silent_peers                      gauge    registered peers past the silence threshold

Network:

	nexus_ping_latency_ms                   histogram  ICMP round-trip time
	nexus_packet_loss_pct                   gauge      rolling-window loss percentage

Recovery and failover:

	nexus_failovers_total{result}           counter    failovers by outcome
	nexus_failover_duration_seconds         histogram  end-to-end failover time
	nexus_recovery_incidents{state}         gauge      live incidents per FSM state

Supervisor:

	nexus_task_restarts_total{task}         counter    restarts after a task panic

# Timing Operations

Timer wraps the start-observe pattern for histograms:

	timer := metrics.NewTimer()
	// ... run the failover ...
	timer.ObserveDuration(metrics.FailoverDuration)

# Component Health

Subsystems report their own state through RegisterComponent and
UpdateComponent. GetHealth folds every registered component into one
liveness verdict; GetReadiness checks only the critical set (stores,
checkpoint store, API) so a degraded network monitor never flips the
agent to not-ready. HealthHandler and ReadyHandler serve these as
/healthz and /readyz.

Label discipline: job_id is the one high-ish cardinality label and is
bounded by the handful of jobs a site runs concurrently. Everything else
is a small fixed enum (severity, medium, state, result).
*/
package metrics
