package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dc1-ops/nexus/pkg/mc"
	"github.com/dc1-ops/nexus/pkg/probe"
	"github.com/dc1-ops/nexus/pkg/types"
)

type fakeControlPlane struct {
	mu sync.Mutex

	gpu    *types.GPUStatus
	gpuErr error

	temp    *float64
	tempErr error

	// GetJob returns a pending job until jobCalls > runningAfter, then job
	job          *types.JobStatus
	jobErr       error
	runningAfter int
	jobCalls     int
}

func (f *fakeControlPlane) GetGPU(_ context.Context, gpuID string) (*types.GPUStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gpuErr != nil {
		return nil, f.gpuErr
	}
	return f.gpu, nil
}

func (f *fakeControlPlane) GetGPUMetrics(_ context.Context, gpuID string) (*mc.GPUMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tempErr != nil {
		return nil, f.tempErr
	}
	return &mc.GPUMetrics{Temperature: f.temp}, nil
}

func (f *fakeControlPlane) GetJob(_ context.Context, jobID string) (*types.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobCalls++
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	if f.jobCalls <= f.runningAfter {
		return &types.JobStatus{ID: jobID, Status: "pending"}, nil
	}
	return f.job, nil
}

// fakeSSH reports unhealthy for the first healthyAfter calls
type fakeSSH struct {
	mu           sync.Mutex
	healthyAfter int
	calls        int
}

func (f *fakeSSH) CheckHost(_ context.Context, host string) probe.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return probe.Result{Healthy: f.calls > f.healthyAfter, CheckedAt: time.Now()}
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestDetectPowerLoss(t *testing.T) {
	cp := &fakeControlPlane{gpuErr: errors.New("timeout")}
	d := NewDetector(cp, &fakeSSH{}, DetectorConfig{})

	event := d.Detect(context.Background(), "gpu-a")

	require.NotNil(t, event)
	require.Equal(t, types.FailurePowerLoss, event.Type)
	require.Equal(t, "GPU host not responding", event.Detail)
	require.False(t, event.DetectedAt.IsZero())
}

func TestDetectNetworkLoss(t *testing.T) {
	cp := &fakeControlPlane{gpu: &types.GPUStatus{ID: "gpu-a", Status: "running", Host: "10.0.0.5"}}
	d := NewDetector(cp, &fakeSSH{healthyAfter: 100}, DetectorConfig{})

	event := d.Detect(context.Background(), "gpu-a")

	require.NotNil(t, event)
	require.Equal(t, types.FailureNetworkLoss, event.Type)
	require.Equal(t, "SSH unreachable: 10.0.0.5", event.Detail)
}

func TestDetectThermal(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:  &types.GPUStatus{ID: "gpu-a", Status: "running", Host: "10.0.0.5"},
		temp: floatPtr(85.5),
	}
	d := NewDetector(cp, &fakeSSH{}, DetectorConfig{})

	event := d.Detect(context.Background(), "gpu-a")

	require.NotNil(t, event)
	require.Equal(t, types.FailureThermal, event.Type)
	require.Equal(t, "GPU temperature 85.5C exceeds 80.0C", event.Detail)
}

func TestDetectTimeout(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:  &types.GPUStatus{ID: "gpu-a", Status: "running", Host: "10.0.0.5", CurrentJobID: "job-1"},
		temp: floatPtr(61),
		job: &types.JobStatus{
			ID:             "job-1",
			Status:         "running",
			GPU:            "gpu-a",
			LastProgressAt: timePtr(time.Now().Add(-45 * time.Minute)),
		},
	}
	d := NewDetector(cp, &fakeSSH{}, DetectorConfig{})

	event := d.Detect(context.Background(), "gpu-a")

	require.NotNil(t, event)
	require.Equal(t, types.FailureTimeout, event.Type)
	require.Equal(t, "no progress for 45 minutes", event.Detail)
}

func TestDetectHealthy(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:  &types.GPUStatus{ID: "gpu-a", Status: "running", Host: "10.0.0.5", CurrentJobID: "job-1"},
		temp: floatPtr(61),
		job: &types.JobStatus{
			ID:             "job-1",
			Status:         "running",
			GPU:            "gpu-a",
			LastProgressAt: timePtr(time.Now().Add(-2 * time.Minute)),
		},
	}
	d := NewDetector(cp, &fakeSSH{}, DetectorConfig{})

	require.Nil(t, d.Detect(context.Background(), "gpu-a"))
}

func TestDetectSSHChecksBeforeTemperature(t *testing.T) {
	// A dead host that is also hot must classify as NETWORK_LOSS; one
	// sweep reports at most one failure per GPU.
	cp := &fakeControlPlane{
		gpu:  &types.GPUStatus{ID: "gpu-a", Status: "running", Host: "10.0.0.5"},
		temp: floatPtr(95),
	}
	d := NewDetector(cp, &fakeSSH{healthyAfter: 100}, DetectorConfig{})

	event := d.Detect(context.Background(), "gpu-a")

	require.NotNil(t, event)
	require.Equal(t, types.FailureNetworkLoss, event.Type)
}

func TestDetectMetricsErrorIgnored(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:     &types.GPUStatus{ID: "gpu-a", Status: "running", Host: "10.0.0.5"},
		tempErr: errors.New("metrics endpoint down"),
	}
	d := NewDetector(cp, &fakeSSH{}, DetectorConfig{})

	require.Nil(t, d.Detect(context.Background(), "gpu-a"))
}

func TestDetectCustomThresholds(t *testing.T) {
	cp := &fakeControlPlane{
		gpu:  &types.GPUStatus{ID: "gpu-a", Status: "running"},
		temp: floatPtr(75),
	}
	d := NewDetector(cp, &fakeSSH{}, DetectorConfig{ThermalThresholdC: 70})

	event := d.Detect(context.Background(), "gpu-a")

	require.NotNil(t, event)
	require.Equal(t, types.FailureThermal, event.Type)
}
