/*
Package netmon watches ISP connectivity from the provider host and turns
probe results into alerts, durable metrics, and a status snapshot.

Every probe cycle (default 10s) the monitor pings the primary target and,
if that fails, the fallback. The sample (target actually used plus
latency, nil on failure) lands in three places: a rolling in-memory
deque for loss computation, the SQLite metric store for history, and the
Prometheus collectors.

	cycle ──▶ primary ping ──fail──▶ fallback ping
	   │
	   ├──▶ deque (2 × window / interval samples)
	   ├──▶ metric store (ping_results)
	   └──▶ alerts:
	         outage:  gap since last success ≥ 5s and cycle failed → CRITICAL
	         loss:    rolling loss > 5% and cycle succeeded        → MEDIUM

Outage detection is driven by wall-clock silence, not consecutive-failure
counting: the monitor keeps lastSuccessTs (seeded with process start) and
raises once the gap crosses the threshold while probes are still failing.
The alert router's cooldown absorbs the repeats fired on every further
failed cycle.

Once per hour of process time the monitor rolls successful samples into
p50/p95/p99 percentiles keyed YYYY-MM-DD-HH, then prunes raw samples and
rollup rows past the retention horizon (default 7 days).

Status returns the live snapshot served at GET /status: degraded iff the
rolling loss exceeds the alert threshold, plus last latency, 24h uptime
(100 when there is no history yet), and the last outage time.
*/
package netmon
