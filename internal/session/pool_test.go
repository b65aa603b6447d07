package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ocean.telemetry/internal/fsutil"
	"github.com/banshee-data/ocean.telemetry/internal/testutil"
	"github.com/banshee-data/ocean.telemetry/internal/timeutil"
)

type recordingSink struct {
	mu      sync.Mutex
	sources []string
	err     error
}

func (s *recordingSink) WriteSession(_ context.Context, res *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, res.Source)
	return s.err
}

func poolFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	good := testutil.Stream(testutil.HeadConfig(0, 3, "AQD 1234"), velocityFrame(0), velocityFrame(1))
	require.NoError(t, fsys.WriteFile("a.prf", good, 0644))
	require.NoError(t, fsys.WriteFile("b.prf", testutil.Unknown(0x42, 32)[:20], 0644))
	require.NoError(t, fsys.WriteFile("c.prf", testutil.Stream(velocityFrame(0)), 0644))
	return fsys
}

func TestRunFiles(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	paths := []string{"a.prf", "b.prf", "missing.prf", "c.prf"}
	results, err := RunFiles(context.Background(), paths, PoolOptions{
		Options: Options{Clock: timeutil.NewMockClock(t0)},
		Workers: 2,
		FS:      poolFS(t),
		Sink:    sink,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, p := range paths {
		assert.Equal(t, p, results[i].Source, "results keep path order")
	}

	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2, rows(t, results[0].Model, "UCUR_MAG"))
	assert.False(t, results[0].Failed())

	assert.True(t, results[1].Summary.Truncated)
	assert.True(t, results[1].Failed(), "truncated with zero frames")

	assert.Error(t, results[2].Err)
	assert.Nil(t, results[2].Model)
	assert.True(t, results[2].Failed(), "open failure")

	assert.Equal(t, 1, results[3].Summary.ContextNotReadySkips, "files do not share stream context")
	assert.False(t, results[3].Failed())

	sort.Strings(sink.sources)
	assert.Equal(t, []string{"a.prf", "b.prf", "c.prf"}, sink.sources, "every opened file reaches the sink")
}

func TestRunFiles_SinkError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	_, err := RunFiles(context.Background(), []string{"a.prf"}, PoolOptions{
		Workers: 1,
		FS:      poolFS(t),
		Sink:    &recordingSink{err: boom},
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a.prf")
}

func TestRunFiles_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunFiles(ctx, []string{"a.prf", "c.prf"}, PoolOptions{FS: poolFS(t)})
	require.ErrorIs(t, err, context.Canceled)
	for _, r := range results {
		require.NotNil(t, r)
		assert.True(t, r.Summary.Cancelled)
	}
}

func TestRunFiles_DefaultsToOneWorker(t *testing.T) {
	t.Parallel()

	results, err := RunFiles(context.Background(), []string{"a.prf", "c.prf"}, PoolOptions{FS: poolFS(t), Workers: 0})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
