package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dc1-ops/nexus/pkg/alert"
	"github.com/dc1-ops/nexus/pkg/audit"
	"github.com/dc1-ops/nexus/pkg/failover"
	"github.com/dc1-ops/nexus/pkg/log"
	"github.com/dc1-ops/nexus/pkg/metrics"
	"github.com/dc1-ops/nexus/pkg/types"
)

// source identifies this component on the audit trail
const source = "recovery"

// FailoverRunner executes the bounded failover sequence.
// *failover.Controller satisfies it.
type FailoverRunner interface {
	Failover(ctx context.Context, jobID, failedGPU, backupGPU string) *failover.Result
}

// Alerter routes escalation alerts. *alert.Router satisfies it.
type Alerter interface {
	Route(a *types.Alert)
}

// Config bounds the recovery state machine
type Config struct {
	// ReconnectDelays are the waits before each reconnect attempt
	// (default 1,2,4,8,16s)
	ReconnectDelays []time.Duration

	// EscalationTimeout is how long to wait for manual intervention
	// after escalating (default 10m)
	EscalationTimeout time.Duration

	// EscalationPoll is the interval between job status polls while
	// escalated (default 30s)
	EscalationPoll time.Duration

	// BackupMap maps each primary GPU to its designated backup. A GPU
	// with no entry escalates straight past the failover step.
	BackupMap map[string]string
}

func (c *Config) applyDefaults() {
	if len(c.ReconnectDelays) == 0 {
		c.ReconnectDelays = []time.Duration{
			1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		}
	}
	if c.EscalationTimeout == 0 {
		c.EscalationTimeout = 10 * time.Minute
	}
	if c.EscalationPoll == 0 {
		c.EscalationPoll = 30 * time.Second
	}
}

// Orchestrator walks one interruption at a time through the recovery
// state machine. It holds no state of its own between incidents; each
// HandleInterruption call owns its RecoveryContext for the incident's
// whole lifetime.
type Orchestrator struct {
	cp       ControlPlane
	ssh      HostProber
	failover FailoverRunner
	alerts   Alerter
	trail    audit.Recorder
	config   Config
	logger   zerolog.Logger
}

// NewOrchestrator creates a recovery orchestrator
func NewOrchestrator(cp ControlPlane, ssh HostProber, fo FailoverRunner, alerts Alerter, trail audit.Recorder, config Config) *Orchestrator {
	config.applyDefaults()
	return &Orchestrator{
		cp:       cp,
		ssh:      ssh,
		failover: fo,
		alerts:   alerts,
		trail:    trail,
		config:   config,
		logger:   log.WithComponent("recovery"),
	}
}

// HandleInterruption drives one incident from detection to a terminal
// state. It blocks for the incident's lifetime: reconnect backoff,
// failover, and the escalation window all run inline. Cancelling ctx
// abandons the incident as FAILED.
func (o *Orchestrator) HandleInterruption(ctx context.Context, jobID, gpuID string, fail types.FailureEvent) *types.RecoveryContext {
	rc := &types.RecoveryContext{
		JobID:         jobID,
		GPUID:         gpuID,
		State:         types.StateRunning,
		InterruptType: fail.Type,
		StartedAt:     time.Now().UTC(),
	}

	o.transition(rc, types.StateInterruptionDetected, fail.Detail)
	o.transition(rc, types.StateReconnecting, "")

	for attempt := 1; attempt <= len(o.config.ReconnectDelays); attempt++ {
		rc.ReconnectAttempts = attempt
		if err := sleepCtx(ctx, o.config.ReconnectDelays[attempt-1]); err != nil {
			o.transition(rc, types.StateFailed, "agent shutdown")
			return rc
		}
		if o.reconnect(ctx, gpuID, attempt) {
			o.transition(rc, types.StateRunning, fmt.Sprintf("Reconnected after %d attempts", attempt))
			finishResolved(rc)
			return rc
		}
	}

	o.transition(rc, types.StateFailingOver, fmt.Sprintf("%d retries exhausted", len(o.config.ReconnectDelays)))

	backup := o.config.BackupMap[gpuID]
	if backup != "" {
		rc.FailoverAttempted = true
		if result := o.failover.Failover(ctx, jobID, gpuID, backup); result != nil && result.Success {
			o.transition(rc, types.StateRunning, fmt.Sprintf("Failover to %s succeeded", backup))
			finishResolved(rc)
			return rc
		}
	}

	var reason, detail string
	if rc.FailoverAttempted {
		detail = "Backup GPU also unavailable"
		reason = fmt.Sprintf("Primary %s down, backup %s also unavailable", gpuID, backup)
	} else {
		detail = "No backup GPU configured"
		reason = fmt.Sprintf("Primary %s down, no backup configured", gpuID)
	}
	o.transition(rc, types.StateEscalating, detail)
	o.escalate(jobID, gpuID, reason)

	deadline := time.Now().Add(o.config.EscalationTimeout)
	for time.Now().Before(deadline) {
		if err := sleepCtx(ctx, o.config.EscalationPoll); err != nil {
			o.transition(rc, types.StateFailed, "agent shutdown")
			return rc
		}
		job, err := o.cp.GetJob(ctx, jobID)
		if err != nil {
			continue
		}
		if job.Status == "running" {
			o.transition(rc, types.StateResolved, "Manual intervention succeeded")
			now := time.Now().UTC()
			rc.ResolvedAt = &now
			return rc
		}
	}

	o.transition(rc, types.StateFailed, "Timeout exceeded")
	return rc
}

// reconnect reports whether the GPU's host answers SSH again
func (o *Orchestrator) reconnect(ctx context.Context, gpuID string, attempt int) bool {
	status, err := o.cp.GetGPU(ctx, gpuID)
	if err != nil || status.Host == "" {
		o.logger.Debug().Err(err).Str("gpu_id", gpuID).Int("attempt", attempt).Msg("Reconnect status fetch failed")
		return false
	}

	res := o.ssh.CheckHost(ctx, status.Host)
	o.logger.Debug().
		Str("gpu_id", gpuID).
		Str("host", status.Host).
		Int("attempt", attempt).
		Bool("healthy", res.Healthy).
		Msg("Reconnect attempt")
	return res.Healthy
}

// transition moves rc to the next state, records the edge on the audit
// trail, and keeps the active-incident gauge in step
func (o *Orchestrator) transition(rc *types.RecoveryContext, to types.RecoveryState, detail string) {
	from := rc.State
	rc.State = to

	if isActive(from) {
		metrics.RecoveryState.WithLabelValues(string(from)).Dec()
	}
	if isActive(to) {
		metrics.RecoveryState.WithLabelValues(string(to)).Inc()
	}

	o.trail.Record(audit.Event{
		Type:   audit.EventRecoveryStateTransition,
		Source: source,
		Details: map[string]any{
			"job_id":  rc.JobID,
			"gpu_id":  rc.GPUID,
			"from":    string(from),
			"to":      string(to),
			"attempt": rc.ReconnectAttempts,
			"details": detail,
		},
	})
	o.logger.Info().
		Str("job_id", rc.JobID).
		Str("gpu_id", rc.GPUID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("details", detail).
		Msg("Recovery state transition")
}

// escalate pages the operator and records the escalation
func (o *Orchestrator) escalate(jobID, gpuID, reason string) {
	message := fmt.Sprintf("🔴 DC1 CRITICAL: Job %s needs manual intervention. %s. GPU: %s",
		jobID, reason, gpuID)

	o.alerts.Route(&types.Alert{
		Severity:    types.SeverityCritical,
		SourceAgent: alert.SelfSource,
		Title:       "Manual Intervention Required",
		Message:     message,
		Metadata: map[string]string{
			"job_id": jobID,
			"gpu_id": gpuID,
		},
	})

	o.trail.Record(audit.Event{
		Type:     audit.EventEscalationCritical,
		Severity: "critical",
		Source:   source,
		Details: map[string]any{
			"job_id": jobID,
			"gpu_id": gpuID,
			"reason": reason,
		},
	})
}

// isActive reports whether a state counts toward the live incident gauge.
// Terminal states and RUNNING are not incidents.
func isActive(s types.RecoveryState) bool {
	switch s {
	case types.StateInterruptionDetected, types.StateReconnecting, types.StateFailingOver, types.StateEscalating:
		return true
	}
	return false
}

// finishResolved marks the context terminal after a recovered incident.
// The audited edge is the transition back to RUNNING; RESOLVED is the
// bookkeeping state the context is discarded in.
func finishResolved(rc *types.RecoveryContext) {
	now := time.Now().UTC()
	rc.State = types.StateResolved
	rc.ResolvedAt = &now
}

// sleepCtx sleeps for d unless ctx is cancelled first
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
