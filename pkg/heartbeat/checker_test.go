package heartbeat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dc1-ops/nexus/pkg/types"
)

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []*types.Alert
}

func (f *fakeAlerter) Route(a *types.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
}

func (f *fakeAlerter) all() []*types.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Alert(nil), f.alerts...)
}

func TestCheckRaisesOneAlertNamingAllSilentPeers(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)
	_, err := agg.Record("3149e473", "on schedule", nil)
	require.NoError(t, err)

	alerts := &fakeAlerter{}
	checker := NewChecker(agg, alerts, 0)
	checker.check()

	got := alerts.all()
	require.Len(t, got, 1)
	require.Equal(t, types.SeverityHigh, got[0].Severity)
	require.Equal(t, SelfName, got[0].SourceAgent)
	require.Equal(t, "Silent Agents Detected", got[0].Title)
	require.Equal(t, "The following agents have not checked in: GUARDIAN, NEXUS, SPARK, SYNC, VOLT", got[0].Message)
}

func TestCheckStaysQuietWhenAllPeersAlive(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)
	for _, id := range DefaultPeers {
		_, err := agg.Record(id, "on schedule", nil)
		require.NoError(t, err)
	}

	alerts := &fakeAlerter{}
	checker := NewChecker(agg, alerts, 0)
	checker.check()

	require.Empty(t, alerts.all())
}

func TestCheckerLoopSweeps(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)

	alerts := &fakeAlerter{}
	checker := NewChecker(agg, alerts, 20*time.Millisecond)
	checker.Start()
	defer checker.Stop()

	// Nobody has checked in, so every sweep raises an alert.
	require.Eventually(t, func() bool {
		return len(alerts.all()) >= 1
	}, 3*time.Second, 10*time.Millisecond)
}
