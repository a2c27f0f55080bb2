package heartbeat

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dc1-ops/nexus/pkg/storage"
	"github.com/dc1-ops/nexus/pkg/types"
)

func newTestAggregator(t *testing.T, threshold time.Duration) (*Aggregator, *storage.SQLiteHeartbeatStore) {
	t.Helper()

	store, err := storage.NewSQLiteHeartbeatStore(filepath.Join(t.TempDir(), "heartbeats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewAggregator(store, NewRegistry(nil), threshold), store
}

// backdate inserts a record with an explicit timestamp, bypassing the
// aggregator's now-stamping.
func backdate(t *testing.T, store storage.HeartbeatStore, id, agentID, name string, age time.Duration) {
	t.Helper()

	require.NoError(t, store.Insert(&types.HeartbeatRecord{
		ID:        id,
		AgentID:   agentID,
		AgentName: name,
		Message:   "backdated",
		Timestamp: time.Now().UTC().Add(-age),
	}))
}

func TestRecordAttributesRegisteredPeer(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)

	rec, err := agg.Record("3149e473", "all good", map[string]any{"gpu_util": 0.91})
	require.NoError(t, err)
	require.Equal(t, "ATLAS", rec.AgentName)
	require.NotEmpty(t, rec.ID)
	require.WithinDuration(t, time.Now().UTC(), rec.Timestamp, 5*time.Second)

	st, ok, err := agg.StatusByName("ATLAS")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, st.Alive)
	require.Equal(t, "all good", st.Message)
	require.NotNil(t, st.LastSeen)
	require.NotNil(t, st.SilentMinutes)
}

func TestRecordUnknownAgentID(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)

	rec, err := agg.Record("deadbeef", "first contact", nil)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", rec.AgentName)

	// Unregistered agents are stored but never surface in the status view.
	statuses, err := agg.Statuses()
	require.NoError(t, err)
	require.Len(t, statuses, 6)
	for _, s := range statuses {
		require.NotEqual(t, "deadbeef", s.AgentID)
	}
}

func TestStatusesWithoutAnyRecords(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)

	statuses, err := agg.Statuses()
	require.NoError(t, err)
	require.Len(t, statuses, 6)

	var names []string
	for _, s := range statuses {
		names = append(names, s.AgentName)
		require.False(t, s.Alive)
		require.Nil(t, s.LastSeen)
		require.Nil(t, s.SilentMinutes)
	}
	require.Equal(t, []string{"ATLAS", "GUARDIAN", "NEXUS", "SPARK", "SYNC", "VOLT"}, names)
}

func TestSilentThreshold(t *testing.T) {
	agg, store := newTestAggregator(t, 10*time.Minute)

	_, err := agg.Record("3149e473", "fresh", nil)
	require.NoError(t, err)
	backdate(t, store, "rec-volt", "1293aef8", "VOLT", 11*time.Minute)

	atlas, ok, err := agg.StatusByName("ATLAS")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, atlas.Alive)

	volt, ok, err := agg.StatusByName("VOLT")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, volt.Alive)
	require.NotNil(t, volt.SilentMinutes)
	require.Greater(t, *volt.SilentMinutes, 10.0)

	silent, err := agg.Silent()
	require.NoError(t, err)

	var names []string
	for _, s := range silent {
		names = append(names, s.AgentName)
	}
	require.Equal(t, []string{"GUARDIAN", "NEXUS", "SPARK", "SYNC", "VOLT"}, names)
}

func TestLatestRecordWins(t *testing.T) {
	agg, store := newTestAggregator(t, 10*time.Minute)

	backdate(t, store, "rec-old", "3149e473", "ATLAS", 3*time.Hour)
	_, err := agg.Record("3149e473", "recovered", nil)
	require.NoError(t, err)

	st, ok, err := agg.StatusByName("atlas")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, st.Alive)
	require.Equal(t, "recovered", st.Message)
}

func TestStatusByNameUnknown(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)

	st, ok, err := agg.StatusByName("NOBODY")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, st)
}

func TestRecordSelf(t *testing.T) {
	agg, _ := newTestAggregator(t, 0)

	agg.RecordSelf("checkpoint saved: 1024B")

	st, ok, err := agg.StatusByName("NEXUS")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, st.Alive)
	require.Equal(t, "checkpoint saved: 1024B", st.Message)
	require.Equal(t, "37c0fd6b", st.AgentID)
}
