/*
Package heartbeat tracks the liveness of the site's agent fleet.

Peers post heartbeats over HTTP; the aggregator attributes each one to a
registered agent, stamps it, and appends it to the embedded store.
Liveness is never stored, only derived: a peer is alive when its newest
heartbeat is younger than the silence threshold (130 minutes, two hourly
check-ins plus grace).

	POST /heartbeat ──▶ Aggregator.Record ──▶ SQLite (insert-only)
	                                              │
	GET /heartbeat/status ◀── Statuses ◀──────────┤
	                                              │
	Checker (every 600s) ◀── Silent ◀─────────────┘
	     │
	     └──▶ one HIGH alert: "The following agents have not checked in: ..."

The registry is fixed at startup. Unknown agent ids are still recorded,
attributed to the raw id, but only registered peers appear in status
output and silent sweeps. A registered peer with no heartbeat at all
reports alive == false with no last-seen time.

The aggregator also records this agent's own liveness: the checkpoint
scheduler calls RecordSelf after each successful save, so NEXUS's
heartbeat reflects real work, not just an idle process.
*/
package heartbeat
