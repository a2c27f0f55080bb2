package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dc1-ops/nexus/pkg/audit"
)

// fakeRemote is an in-memory ObjectStore with switchable failure modes
type fakeRemote struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPuts int // fail the next N puts
	corrupt  bool
	putCalls int
	getCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: make(map[string][]byte)}
}

func (f *fakeRemote) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putCalls++
	if f.failPuts > 0 {
		f.failPuts--
		return errors.New("remote unavailable")
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[key] = cp
	return nil
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	if f.corrupt && len(cp) > 0 {
		cp[0] ^= 0xFF
	}
	return cp, nil
}

func (f *fakeRemote) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, key)
	return nil
}

func (f *fakeRemote) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// captureRecorder collects audit events for assertions
type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(e audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureRecorder) all() []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]audit.Event, len(c.events))
	copy(out, c.events)
	return out
}

func newTestStore(t *testing.T) (*Store, *fakeRemote, *captureRecorder) {
	t.Helper()

	local, err := NewLocalMedium(t.TempDir())
	require.NoError(t, err)

	remote := newFakeRemote()
	trail := &captureRecorder{}

	st := NewStore(local, remote, trail)
	st.putDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	return st, remote, trail
}

func TestSaveDualWriteHappyPath(t *testing.T) {
	st, remote, _ := newTestStore(t)
	ctx := context.Background()

	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}

	ckpt, err := st.Save(ctx, "job-42", 1, b)
	require.NoError(t, err)
	require.Equal(t, int64(256), ckpt.SizeBytes)
	require.Equal(t, sha256Hex(b), ckpt.SHA256)
	require.True(t, strings.HasPrefix(ckpt.SHA256, "40aff2"))
	require.Equal(t, "checkpoints/job-42/000001.ckpt", ckpt.RemoteKey)

	onDisk, err := os.ReadFile(ckpt.LocalPath)
	require.NoError(t, err)
	require.Equal(t, b, onDisk)

	remoteData, err := remote.Get(ctx, ckpt.RemoteKey)
	require.NoError(t, err)
	require.Equal(t, b, remoteData)

	loaded, meta, err := st.LoadLatest(ctx, "job-42")
	require.NoError(t, err)
	require.Equal(t, b, loaded)
	require.Equal(t, 1, meta.Seq)
}

func TestSaveRemoteDegraded(t *testing.T) {
	st, remote, _ := newTestStore(t)
	ctx := context.Background()
	remote.failPuts = 3

	b := []byte("state after step 1000")
	ckpt, err := st.Save(ctx, "job-42", 1, b)
	require.NoError(t, err)
	require.Empty(t, ckpt.RemoteKey)
	require.NotEmpty(t, ckpt.LocalPath)
	require.Equal(t, 3, remote.putCalls)

	list, err := st.List("job-42")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Empty(t, list[0].RemoteKey)

	loaded, _, err := st.LoadLatest(ctx, "job-42")
	require.NoError(t, err)
	require.Equal(t, b, loaded)
	require.Zero(t, remote.getCalls, "local hit must not touch the remote store")
}

func TestSaveBothMediaDown(t *testing.T) {
	base := t.TempDir()
	local, err := NewLocalMedium(base)
	require.NoError(t, err)

	// A plain file where the job directory should go makes every local
	// write fail.
	require.NoError(t, os.WriteFile(filepath.Join(base, "job-7"), []byte("in the way"), 0644))

	remote := newFakeRemote()
	remote.failPuts = 3

	st := NewStore(local, remote, &captureRecorder{})
	st.putDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	_, err = st.Save(context.Background(), "job-7", 1, []byte("doomed"))
	require.ErrorIs(t, err, ErrBothMediaFailed)
}

func TestSaveRemoteCorruptReadBack(t *testing.T) {
	st, remote, trail := newTestStore(t)
	remote.corrupt = true

	ckpt, err := st.Save(context.Background(), "job-8", 1, []byte("payload"))
	require.NoError(t, err)
	require.Empty(t, ckpt.RemoteKey)
	require.NotEmpty(t, ckpt.LocalPath)

	events := trail.all()
	require.Len(t, events, 1)
	require.Equal(t, audit.EventCheckpointIntegrity, events[0].Type)
	require.Equal(t, "remote", events[0].Details["medium"])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	payloads := [][]byte{
		{},
		{0x00},
		[]byte("plain text state"),
		make([]byte, 4096),
	}
	for i := range payloads[3] {
		payloads[3][i] = byte(i % 251)
	}

	for i, b := range payloads {
		seq := i + 1
		_, err := st.Save(ctx, "job-rt", seq, b)
		require.NoError(t, err)

		loaded, _, err := st.Load(ctx, "job-rt", seq)
		require.NoError(t, err)
		require.Equal(t, b, loaded)
	}
}

func TestNextSeqMonotonic(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	seq, err := st.NextSeq("job-1")
	require.NoError(t, err)
	require.Equal(t, 1, seq)

	for i := 1; i <= 3; i++ {
		seq, err := st.NextSeq("job-1")
		require.NoError(t, err)
		require.Equal(t, i, seq)

		_, err = st.Save(ctx, "job-1", seq, []byte{byte(i)})
		require.NoError(t, err)
	}

	list, err := st.List("job-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, c := range list {
		require.Equal(t, i+1, c.Seq)
	}
}

func TestLoadBySeq(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := st.Save(ctx, "job-3", 1, []byte("one"))
	require.NoError(t, err)
	_, err = st.Save(ctx, "job-3", 2, []byte("two"))
	require.NoError(t, err)

	data, meta, err := st.Load(ctx, "job-3", 1)
	require.NoError(t, err)
	require.Equal(t, []byte("one"), data)
	require.Equal(t, 1, meta.Seq)

	data, meta, err = st.Load(ctx, "job-3", Latest)
	require.NoError(t, err)
	require.Equal(t, []byte("two"), data)
	require.Equal(t, 2, meta.Seq)

	data, meta, err = st.Load(ctx, "job-3", 99)
	require.NoError(t, err)
	require.Nil(t, data)
	require.Nil(t, meta)
}

func TestLoadUnknownJob(t *testing.T) {
	st, _, _ := newTestStore(t)

	data, meta, err := st.LoadLatest(context.Background(), "never-saved")
	require.NoError(t, err)
	require.Nil(t, data)
	require.Nil(t, meta)
}

func TestLoadSelfHealsFromRemote(t *testing.T) {
	t.Run("missing local file", func(t *testing.T) {
		st, _, _ := newTestStore(t)
		ctx := context.Background()

		b := []byte("survives medium loss")
		ckpt, err := st.Save(ctx, "job-9", 1, b)
		require.NoError(t, err)
		require.NoError(t, os.Remove(ckpt.LocalPath))

		loaded, meta, err := st.LoadLatest(ctx, "job-9")
		require.NoError(t, err)
		require.Equal(t, b, loaded)
		require.Equal(t, ckpt.LocalPath, meta.LocalPath)

		healed, err := os.ReadFile(ckpt.LocalPath)
		require.NoError(t, err)
		require.Equal(t, b, healed)
	})

	t.Run("corrupt local file", func(t *testing.T) {
		st, _, trail := newTestStore(t)
		ctx := context.Background()

		b := []byte("correct bytes")
		ckpt, err := st.Save(ctx, "job-9", 1, b)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(ckpt.LocalPath, []byte("bit rot"), 0644))

		loaded, _, err := st.LoadLatest(ctx, "job-9")
		require.NoError(t, err)
		require.Equal(t, b, loaded)

		healed, err := os.ReadFile(ckpt.LocalPath)
		require.NoError(t, err)
		require.Equal(t, b, healed)

		events := trail.all()
		require.NotEmpty(t, events)
		require.Equal(t, audit.EventCheckpointIntegrity, events[0].Type)
		require.Equal(t, "local", events[0].Details["medium"])
	})
}

func TestPruneOldestKeepsNewest(t *testing.T) {
	st, remote, _ := newTestStore(t)
	ctx := context.Background()

	var paths []string
	for i := 1; i <= 5; i++ {
		ckpt, err := st.Save(ctx, "job-5", i, []byte{byte(i)})
		require.NoError(t, err)
		paths = append(paths, ckpt.LocalPath)
	}

	require.NoError(t, st.PruneOldest(ctx, "job-5", 3))

	list, err := st.List("job-5")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, 3, list[0].Seq)
	require.Equal(t, 5, list[2].Seq)

	for i, path := range paths {
		_, err := os.Stat(path)
		if i < 2 {
			require.True(t, os.IsNotExist(err), "seq %d should be pruned", i+1)
		} else {
			require.NoError(t, err, "seq %d should survive", i+1)
		}
	}

	_, err = remote.Get(ctx, RemoteKey("job-5", 1))
	require.Error(t, err)
	_, err = remote.Get(ctx, RemoteKey("job-5", 5))
	require.NoError(t, err)
}

func TestPruneOldestBelowThresholdIsNoop(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := st.Save(ctx, "job-6", i, []byte{byte(i)})
		require.NoError(t, err)
	}

	require.NoError(t, st.PruneOldest(ctx, "job-6", 3))

	list, err := st.List("job-6")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, 1, list[0].Seq)
}

func TestDeleteAllIdempotent(t *testing.T) {
	st, remote, _ := newTestStore(t)
	ctx := context.Background()

	_, err := st.Save(ctx, "job-2", 1, []byte("a"))
	require.NoError(t, err)
	_, err = st.Save(ctx, "job-2", 2, []byte("b"))
	require.NoError(t, err)

	require.NoError(t, st.DeleteAll(ctx, "job-2"))

	_, err = os.Stat(st.local.JobDir("job-2"))
	require.True(t, os.IsNotExist(err))
	require.Empty(t, remote.keys())

	// Second call finds nothing and still succeeds.
	require.NoError(t, st.DeleteAll(ctx, "job-2"))

	list, err := st.List("job-2")
	require.NoError(t, err)
	require.Empty(t, list)
}
