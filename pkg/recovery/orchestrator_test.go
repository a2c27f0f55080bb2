package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dc1-ops/nexus/pkg/audit"
	"github.com/dc1-ops/nexus/pkg/failover"
	"github.com/dc1-ops/nexus/pkg/types"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(e audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// transitions returns the "to" state of every recorded FSM edge, in order
func (c *captureRecorder) transitions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, e := range c.events {
		if e.Type == audit.EventRecoveryStateTransition {
			out = append(out, e.Details["to"].(string))
		}
	}
	return out
}

func (c *captureRecorder) lastDetail() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == audit.EventRecoveryStateTransition {
			return c.events[i].Details["details"].(string)
		}
	}
	return ""
}

func (c *captureRecorder) ofType(t audit.EventType) []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []audit.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []*types.Alert
}

func (f *fakeAlerter) Route(a *types.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
}

type failoverCall struct {
	jobID, failedGPU, backupGPU string
}

type fakeFailover struct {
	mu      sync.Mutex
	succeed bool
	calls   []failoverCall
}

func (f *fakeFailover) Failover(_ context.Context, jobID, failedGPU, backupGPU string) *failover.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, failoverCall{jobID, failedGPU, backupGPU})
	return &failover.Result{
		Success:   f.succeed,
		JobID:     jobID,
		FailedGPU: failedGPU,
		BackupGPU: backupGPU,
	}
}

func testRecoveryConfig() Config {
	return Config{
		ReconnectDelays:   []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond},
		EscalationTimeout: 60 * time.Millisecond,
		EscalationPoll:    5 * time.Millisecond,
		BackupMap:         map[string]string{"gpu-a": "gpu-b"},
	}
}

func networkLoss() types.FailureEvent {
	return types.FailureEvent{
		Type:       types.FailureNetworkLoss,
		DetectedAt: time.Now().UTC(),
		Detail:     "SSH unreachable: 10.0.0.5",
	}
}

func TestReconnectRecoversOnThirdAttempt(t *testing.T) {
	cp := &fakeControlPlane{gpu: &types.GPUStatus{ID: "gpu-a", Host: "10.0.0.5"}}
	ssh := &fakeSSH{healthyAfter: 2} // fail, fail, ok
	fo := &fakeFailover{}
	alerts := &fakeAlerter{}
	trail := &captureRecorder{}

	o := NewOrchestrator(cp, ssh, fo, alerts, trail, testRecoveryConfig())
	rc := o.HandleInterruption(context.Background(), "job-1", "gpu-a", networkLoss())

	require.Equal(t, types.StateResolved, rc.State)
	require.Equal(t, 3, rc.ReconnectAttempts)
	require.NotNil(t, rc.ResolvedAt)
	require.False(t, rc.FailoverAttempted)
	require.Empty(t, fo.calls)
	require.Empty(t, alerts.alerts)

	require.Equal(t, []string{
		string(types.StateInterruptionDetected),
		string(types.StateReconnecting),
		string(types.StateRunning),
	}, trail.transitions())
	require.Equal(t, "Reconnected after 3 attempts", trail.lastDetail())
}

func TestFailoverAfterReconnectExhausted(t *testing.T) {
	cp := &fakeControlPlane{gpu: &types.GPUStatus{ID: "gpu-a", Host: "10.0.0.5"}}
	ssh := &fakeSSH{healthyAfter: 100} // never reconnects
	fo := &fakeFailover{succeed: true}
	trail := &captureRecorder{}

	o := NewOrchestrator(cp, ssh, fo, &fakeAlerter{}, trail, testRecoveryConfig())
	rc := o.HandleInterruption(context.Background(), "job-1", "gpu-a", networkLoss())

	require.Equal(t, types.StateResolved, rc.State)
	require.Equal(t, 3, rc.ReconnectAttempts)
	require.True(t, rc.FailoverAttempted)
	require.Equal(t, []failoverCall{{"job-1", "gpu-a", "gpu-b"}}, fo.calls)

	require.Equal(t, []string{
		string(types.StateInterruptionDetected),
		string(types.StateReconnecting),
		string(types.StateFailingOver),
		string(types.StateRunning),
	}, trail.transitions())
	require.Equal(t, "Failover to gpu-b succeeded", trail.lastDetail())
}

func TestEscalationResolvedByOperator(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:          &types.GPUStatus{ID: "gpu-a", Host: "10.0.0.5"},
		job:          &types.JobStatus{ID: "job-1", Status: "running", GPU: "gpu-a"},
		runningAfter: 1,
	}
	ssh := &fakeSSH{healthyAfter: 100}
	fo := &fakeFailover{succeed: false}
	alerts := &fakeAlerter{}
	trail := &captureRecorder{}

	o := NewOrchestrator(cp, ssh, fo, alerts, trail, testRecoveryConfig())
	rc := o.HandleInterruption(context.Background(), "job-1", "gpu-a", networkLoss())

	require.Equal(t, types.StateResolved, rc.State)
	require.NotNil(t, rc.ResolvedAt)
	require.Equal(t, "Manual intervention succeeded", trail.lastDetail())

	require.Len(t, alerts.alerts, 1)
	a := alerts.alerts[0]
	require.Equal(t, types.SeverityCritical, a.Severity)
	require.Contains(t, a.Message, "🔴 DC1 CRITICAL: Job job-1 needs manual intervention")
	require.Contains(t, a.Message, "backup gpu-b also unavailable")
	require.Contains(t, a.Message, "GPU: gpu-a")

	esc := trail.ofType(audit.EventEscalationCritical)
	require.Len(t, esc, 1)
	require.Equal(t, "critical", esc[0].Severity)
	require.Equal(t, "job-1", esc[0].Details["job_id"])
}

func TestEscalationWindowExpires(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:          &types.GPUStatus{ID: "gpu-a", Host: "10.0.0.5"},
		job:          &types.JobStatus{ID: "job-1", Status: "pending"},
		runningAfter: 10000,
	}
	ssh := &fakeSSH{healthyAfter: 100}
	fo := &fakeFailover{succeed: false}
	trail := &captureRecorder{}

	o := NewOrchestrator(cp, ssh, fo, &fakeAlerter{}, trail, testRecoveryConfig())
	rc := o.HandleInterruption(context.Background(), "job-1", "gpu-a", networkLoss())

	require.Equal(t, types.StateFailed, rc.State)
	require.Nil(t, rc.ResolvedAt)
	require.Equal(t, "Timeout exceeded", trail.lastDetail())

	trs := trail.transitions()
	require.Equal(t, string(types.StateFailed), trs[len(trs)-1])
	require.Contains(t, trs, string(types.StateEscalating))
}

func TestNoBackupConfiguredEscalatesDirectly(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:          &types.GPUStatus{ID: "gpu-z", Host: "10.0.0.9"},
		job:          &types.JobStatus{ID: "job-1", Status: "running"},
		runningAfter: 1,
	}
	ssh := &fakeSSH{healthyAfter: 100}
	fo := &fakeFailover{succeed: true}
	alerts := &fakeAlerter{}
	trail := &captureRecorder{}

	// gpu-z has no backup_map entry
	o := NewOrchestrator(cp, ssh, fo, alerts, trail, testRecoveryConfig())
	rc := o.HandleInterruption(context.Background(), "job-1", "gpu-z", networkLoss())

	require.Equal(t, types.StateResolved, rc.State)
	require.False(t, rc.FailoverAttempted)
	require.Empty(t, fo.calls)

	require.Len(t, alerts.alerts, 1)
	require.Contains(t, alerts.alerts[0].Message, "no backup configured")
}

func TestShutdownAbandonsIncident(t *testing.T) {
	cp := &fakeControlPlane{gpu: &types.GPUStatus{ID: "gpu-a", Host: "10.0.0.5"}}
	ssh := &fakeSSH{healthyAfter: 100}
	cfg := testRecoveryConfig()
	cfg.ReconnectDelays = []time.Duration{time.Second, time.Second}
	trail := &captureRecorder{}

	o := NewOrchestrator(cp, ssh, &fakeFailover{}, &fakeAlerter{}, trail, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	rc := o.HandleInterruption(ctx, "job-1", "gpu-a", networkLoss())

	require.Equal(t, types.StateFailed, rc.State)
	require.Equal(t, "agent shutdown", trail.lastDetail())
	require.Less(t, time.Since(start), time.Second)
}

func TestTransitionAuditDetails(t *testing.T) {
	cp := &fakeControlPlane{gpu: &types.GPUStatus{ID: "gpu-a", Host: "10.0.0.5"}}
	ssh := &fakeSSH{} // healthy immediately, first attempt reconnects
	trail := &captureRecorder{}

	o := NewOrchestrator(cp, ssh, &fakeFailover{}, &fakeAlerter{}, trail, testRecoveryConfig())
	o.HandleInterruption(context.Background(), "job-1", "gpu-a", networkLoss())

	edges := trail.ofType(audit.EventRecoveryStateTransition)
	require.NotEmpty(t, edges)
	first := edges[0]
	require.Equal(t, "job-1", first.Details["job_id"])
	require.Equal(t, "gpu-a", first.Details["gpu_id"])
	require.Equal(t, string(types.StateRunning), first.Details["from"])
	require.Equal(t, string(types.StateInterruptionDetected), first.Details["to"])
	require.Equal(t, "SSH unreachable: 10.0.0.5", first.Details["details"])
}
