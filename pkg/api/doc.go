/*
Package api assembles the agent's HTTP surface.

	POST /heartbeat                peer liveness ingest       bearer
	GET  /heartbeat/status         fleet liveness view
	GET  /heartbeat/status/{name}  one agent's liveness view
	GET  /status                   network health snapshot    rate limited
	POST /v1/command               Mission Control dispatch   bearer
	GET  /healthz                  liveness
	GET  /readyz                   readiness (critical components)
	GET  /metrics                  Prometheus exposition

Authenticated routes require "Authorization: Bearer <mc token>"; a bad
or missing header is a 401 with no side effects. Every non-2xx response
body is {"error": "..."}.

GET /status carries a sliding-window rate limit (default 60 req/min
across all callers) because site dashboards poll it aggressively; over
the limit is a 429.

Command dispatch accepts start_job, stop_job, checkpoint_now, and
status_report; unknown commands are a 400 naming the offending type.
*/
package api
