/*
Package audit provides the immutable audit trail for recovery and
failover activity.

Every recovery state transition, failover step, and escalation is
recorded as an Event and shipped asynchronously to Mission Control
(POST /security/audit) and to the structured log. The trail is
best-effort by contract: shipping failures are logged and never block
or fail the operation being audited. An unreachable audit endpoint
must not stall a failover that is racing a 60 second budget.

# Pipeline

	Record(Event) ──▶ buffered channel ──▶ run() ──▶ Sink.Ship() per sink
	                   (100 events)         single     MCSink → Mission Control
	                                        goroutine  LogSink → zerolog

A single shipping goroutine consumes the queue, so events reach every
sink in record order: failover_started always lands before
failover_complete for the same incident. When the queue is full the
event is dropped with a warning rather than blocking the recorder.

Stop flushes queued events before returning, so a clean shutdown does
not lose the tail of an incident.

# Event Types

	recovery_state_transition      every recovery FSM edge
	failover_started               failover sequence began
	failover_complete              job confirmed on backup
	failover_failed                any failover step aborted
	failover_test_started          drill began
	failover_test_complete         drill finished
	checkpoint_integrity_failure   sha256 mismatch on read
	escalation_critical            human escalation raised

Events default to severity "high"; escalations record "critical"
explicitly.

# Usage

	trail := audit.NewTrail(audit.NewMCSink(mcClient), audit.NewLogSink())
	trail.Start()
	defer trail.Stop()

	trail.Record(audit.Event{
		Type:   audit.EventFailoverStarted,
		Source: "failover-controller",
		Details: map[string]any{
			"job_id": jobID, "from": failedGPU, "to": backupGPU,
		},
	})

Components hold the Recorder interface rather than *Trail so tests can
substitute a synchronous capture.
*/
package audit
