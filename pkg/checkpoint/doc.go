/*
Package checkpoint provides dual-medium job checkpointing for the DC1 site
agent.

Every checkpoint is written to two independent media, the local NAS mount
and an S3-compatible object store, with SHA-256 verification on every write
and read. A per-job index file records what was committed where, so a
partially degraded save (one medium down) is visible to readers rather than
silently retried.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                      Scheduler                              │
	│            (one goroutine per registered job)               │
	│                                                             │
	│   tick → GET /jobs/<id> → statePayload → Save → Prune       │
	└────────────────────────┬────────────────────────────────────┘
	                         │
	                         ▼
	┌─────────────────────────────────────────────────────────────┐
	│                        Store                                │
	│                                                             │
	│   Save(jobID, seq, bytes):                                  │
	│     1. sha256(bytes)                                        │
	│     2. local atomic write + read-back verify                │
	│     3. remote put (retry 1s, 2s, 4s) + read-back verify     │
	│     4. append index entry (absent medium left empty)        │
	└──────────┬─────────────────────────────────┬────────────────┘
	           │                                 │
	           ▼                                 ▼
	┌──────────────────────┐         ┌────────────────────────────┐
	│     LocalMedium      │         │     S3Medium               │
	│                      │         │                            │
	│ <base>/<job>/        │         │ checkpoints/<job>/         │
	│   000001.ckpt        │         │   000001.ckpt              │
	│   meta.json          │         │                            │
	└──────────────────────┘         └────────────────────────────┘

# On-Disk Layout

Checkpoint files are sequence-numbered, zero-padded to six digits. Each
job's directory carries a meta.json index, a JSON array appended on every
committed save:

	[
	  {
	    "seq": 1,
	    "sha256": "40aff2e9...",
	    "size": 256,
	    "local_path": "/var/dc1/checkpoints/job-42/000001.ckpt",
	    "remote_key": "checkpoints/job-42/000001.ckpt",
	    "saved_at": "2026-03-01T10:00:00Z"
	  }
	]

An empty local_path or remote_key marks a medium that failed during that
save. The index itself lives on the local medium and is rewritten
atomically.

# Failure Semantics

One medium failing is a degraded but committed save: the index entry is
written with the failed medium left empty and the caller gets a normal
Checkpoint back. Both media failing returns ErrBothMediaFailed and commits
nothing. The scheduler treats ErrBothMediaFailed as fatal for that job's
loop: it emits a CRITICAL alert and pauses, leaving other jobs running.

Load prefers the local copy and falls back to the remote one. A remote
fallback that verifies rewrites the local copy in place (self-heal), so
the next load is served locally again. SHA-256 mismatches on any read are
recorded on the audit trail as checkpoint_integrity_failure events.

# Usage

	local, err := checkpoint.NewLocalMedium("/var/dc1/checkpoints")
	if err != nil {
	    return err
	}
	remote, err := checkpoint.NewS3Medium(ctx, checkpoint.S3Config{
	    Bucket:    "dc1-checkpoints",
	    Region:    "me-south-1",
	    AccessKey: accessKey,
	    SecretKey: secretKey,
	})
	if err != nil {
	    return err
	}
	store := checkpoint.NewStore(local, remote, trail)

	sched := checkpoint.NewScheduler(store, mcClient, router, aggregator,
	    checkpoint.SchedulerConfig{SaveInterval: time.Hour, KeepN: 3})
	sched.StartJob(types.JobSpec{JobID: "job-42", GPUID: "gpu-7"})
	defer sched.StopAll()

# Concurrency

The Store serializes nothing itself: saves for one job must be serialized
by the caller (each job has exactly one scheduler loop), while different
jobs touch disjoint directories and object keys and are safe concurrently.
The Scheduler owns the per-job goroutines and their cancellation.

Retention is enforced after every save: PruneOldest(keepN) deletes the
oldest entries on both media once more than keepN exist. Nothing is ever
deleted before the newer checkpoint that replaces it has been committed.
*/
package checkpoint
