package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dc1-ops/nexus/pkg/types"
)

type fakeJobSource struct {
	mu    sync.Mutex
	specs []types.JobSpec
}

func (f *fakeJobSource) Scheduled() []types.JobSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.specs
}

type fakeDetector struct {
	mu    sync.Mutex
	event *types.FailureEvent
	calls int
}

func (f *fakeDetector) Detect(_ context.Context, gpuID string) *types.FailureEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.event
}

func (f *fakeDetector) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeHandler struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{} // nil means return immediately
}

func (f *fakeHandler) HandleInterruption(_ context.Context, jobID, gpuID string, fail types.FailureEvent) *types.RecoveryContext {
	f.mu.Lock()
	f.calls = append(f.calls, jobID+"/"+gpuID)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	return &types.RecoveryContext{JobID: jobID, GPUID: gpuID, State: types.StateResolved}
}

func (f *fakeHandler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestWatcherOneIncidentPerGPU(t *testing.T) {
	jobs := &fakeJobSource{specs: []types.JobSpec{{JobID: "job-1", GPUID: "gpu-a"}}}
	det := &fakeDetector{event: &types.FailureEvent{Type: types.FailurePowerLoss, Detail: "GPU host not responding"}}
	handler := &fakeHandler{release: make(chan struct{})}

	w := NewWatcher(jobs, det, handler, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, time.Millisecond)

	// Several more sweeps pass while the incident is in flight; the
	// guard must hold the second one back.
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, 1, handler.count())

	// Incident finishes (a closed channel releases every later call
	// immediately), so the next detection may fire again
	close(handler.release)
	require.Eventually(t, func() bool { return handler.count() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherIgnoresHealthyGPUs(t *testing.T) {
	jobs := &fakeJobSource{specs: []types.JobSpec{
		{JobID: "job-1", GPUID: "gpu-a"},
		{JobID: "job-2", GPUID: "gpu-b"},
	}}
	det := &fakeDetector{event: nil}
	handler := &fakeHandler{}

	w := NewWatcher(jobs, det, handler, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool { return det.count() >= 4 }, time.Second, time.Millisecond)
	require.Equal(t, 0, handler.count())
}

func TestWatcherSkipsJobsWithoutGPU(t *testing.T) {
	jobs := &fakeJobSource{specs: []types.JobSpec{{JobID: "job-1", GPUID: ""}}}
	det := &fakeDetector{event: &types.FailureEvent{Type: types.FailurePowerLoss}}
	handler := &fakeHandler{}

	w := NewWatcher(jobs, det, handler, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 0, det.count())
	require.Equal(t, 0, handler.count())
}

func TestWatcherWaitsForIncidentsOnStop(t *testing.T) {
	jobs := &fakeJobSource{specs: []types.JobSpec{{JobID: "job-1", GPUID: "gpu-a"}}}
	det := &fakeDetector{event: &types.FailureEvent{Type: types.FailureThermal, Detail: "GPU temperature 91.0C exceeds 80.0C"}}
	release := make(chan struct{})
	handler := &fakeHandler{release: release}

	w := NewWatcher(jobs, det, handler, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, time.Millisecond)
	cancel()

	// Run must not return while the incident goroutine is alive
	select {
	case <-done:
		t.Fatal("watcher returned before incident finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after incident finished")
	}
}
