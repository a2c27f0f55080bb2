/*
Package storage provides the embedded persistence layer for the nexus agent.

The storage package implements three durable stores: an insert-only SQLite
heartbeat table, a SQLite network metric store (probe samples plus hourly
latency rollups), and a BoltDB job registry that lets checkpoint scheduling
survive agent restarts. SQLite runs through the pure-Go modernc driver, so the
agent cross-compiles for provider hosts without CGO.

# Architecture

	┌──────────────────── EMBEDDED STORES ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │   SQLiteHeartbeatStore                     │           │
	│  │   File: <dataDir>/heartbeats.db            │           │
	│  │   Table: heartbeats (id PK, agent_id,      │           │
	│  │          agent_name, message,              │           │
	│  │          metadata_json, ts_utc)            │           │
	│  │   Insert-only; duplicate id rejected       │           │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │   SQLiteMetricStore                        │           │
	│  │   File: <dataDir>/netmon.db                │           │
	│  │   Tables: ping_results (ts PK, target,     │           │
	│  │           latency_ms, success)             │           │
	│  │           latency_stats (bucket PK,        │           │
	│  │           p50, p95, p99, sample_count)     │           │
	│  │   Retention via Prune()                    │           │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │   BoltJobStore                             │           │
	│  │   File: <dataDir>/jobs.db                  │           │
	│  │   Bucket: jobs (job_id → JobSpec JSON)     │           │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

Both SQLite files are opened in WAL mode with a 5s busy timeout and a single
connection (SQLite supports one writer at a time). Each store is owned and
written by exactly one component: the heartbeat aggregator, the network
monitor, and the command handler respectively.

# Usage

	hb, err := storage.NewSQLiteHeartbeatStore(cfg.HeartbeatDBPath())
	if err != nil {
		return err
	}
	defer hb.Close()

	err = hb.Insert(&types.HeartbeatRecord{
		ID:        uuid.New().String(),
		AgentID:   "3149e473",
		AgentName: "ATLAS",
		Timestamp: time.Now().UTC(),
	})

	latest, err := hb.Latest() // newest record per agent id

Metric retention runs after each hourly rollup:

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	err = metrics.Prune(cutoff, cutoff.UTC().Format("2006-01-02-15"))

# Timestamp Encoding

Timestamps are stored as RFC3339Nano UTC strings. String comparison on the
ts column is therefore time comparison, which the range queries and the
pruning statements rely on. The same holds for the YYYY-MM-DD-HH rollup
bucket keys.

# Integration Points

  - pkg/heartbeat: owns the heartbeat store
  - pkg/netmon: owns the metric store
  - pkg/api + pkg/checkpoint: job registry reads/writes on start_job/stop_job
  - cmd/nexus: opens all three at boot, closes them last on shutdown
*/
package storage
