/*
Package recovery detects GPU interruptions and walks each one through
the recovery state machine until it is resolved or a human owns it.

	RUNNING
	   │ failure detected
	   ▼
	INTERRUPTION_DETECTED ──▶ RECONNECTING ──reconnected──▶ RUNNING ─▶ RESOLVED
	                              │ 5 attempts (1,2,4,8,16s) exhausted
	                              ▼
	                          FAILING_OVER ──succeeded──▶ RUNNING ─▶ RESOLVED
	                              │ failover failed or no backup
	                              ▼
	                          ESCALATING ──operator fixed it──▶ RESOLVED
	                              │ 600s window expired
	                              ▼
	                            FAILED

Detection runs on a fixed sweep (default 30s) over every job the
checkpoint scheduler is guarding, in strict order: no GPU status is
POWER_LOSS, dead SSH is NETWORK_LOSS, above 80C is THERMAL, and no
job progress for 30 minutes is TIMEOUT. The first match wins so one
sweep never reports two failures for the same GPU, and at most one
incident per GPU is in flight at a time.

Every state edge lands on the audit trail with the job, GPU, attempt
count, and a human-readable detail, so a post-incident review can
replay the exact path taken. Escalation pages the operator DM with a
CRITICAL alert and then polls Mission Control for the job coming back,
because the operator fixing the job IS the resolution signal; there is
no separate acknowledgement channel.

The orchestrator is synchronous by design: HandleInterruption blocks
for the incident's whole lifetime (up to roughly 11 minutes for the
full escalation path) and the watcher gives each incident its own
goroutine.
*/
package recovery
