package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ocean.telemetry/internal/model"
	"github.com/banshee-data/ocean.telemetry/internal/session"
	"github.com/banshee-data/ocean.telemetry/internal/testutil"
	"github.com/banshee-data/ocean.telemetry/internal/timeutil"
)

var t0 = time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.Clock = timeutil.NewMockClock(t0)
	return s
}

func decodeFixture(t *testing.T) *session.Result {
	t.Helper()
	stream := testutil.Stream(
		testutil.HeadConfig(0, 3, "AQD 1234"),
		testutil.AquadoppVelocity(t0, [3]int16{100, -200, 300}, [3]uint8{50, 60, 70}),
		testutil.AquadoppVelocity(t0.Add(time.Second), [3]int16{300, -200, 100}, [3]uint8{52, 62, 72}),
	)
	res, err := session.Decode(context.Background(), "fixture.prf", bytes.NewReader(stream),
		session.Options{Clock: timeutil.NewMockClock(t0)})
	require.NoError(t, err)
	return res
}

func TestOpen_Migrates(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// A second run is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.SaveSession(context.Background(), decodeFixture(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Sessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSaveSession_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	res := decodeFixture(t)

	id, err := s.SaveSession(ctx, res)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, "fixture.prf", sessions[0].Source)
	assert.Equal(t, t0, sessions[0].StoredAt)

	want := res.Summary
	want.RecordsByType = nil
	want.SkippedBytes = 0
	if diff := cmp.Diff(want, sessions[0].Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	attrs, err := s.Attributes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, res.Model.Attributes(), attrs)

	times, values, err := s.Samples(ctx, id, "UCUR_MAG")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{t0, t0.Add(time.Second)}, times)
	require.Len(t, values, 2)
	assert.InDeltaSlice(t, []float64{0.1}, values[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.3}, values[1], 1e-12)
}

func TestSaveSession_Channels(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveSession(ctx, decodeFixture(t))
	require.NoError(t, err)

	channels, err := s.Channels(ctx, id)
	require.NoError(t, err)

	byName := map[string]ChannelRecord{}
	for _, c := range channels {
		byName[c.Name] = c
	}
	u, ok := byName["UCUR_MAG"]
	require.True(t, ok)
	assert.Equal(t, 2, u.Rows)
	assert.Equal(t, "m s-1", u.Unit)
	assert.Equal(t, model.TimebaseTime, u.Timebase)
	assert.InDelta(t, 0.1, u.Min.Float64, 1e-12)
	assert.InDelta(t, 0.3, u.Max.Float64, 1e-12)
	assert.InDelta(t, 0.2, u.Mean.Float64, 1e-12)
	assert.True(t, u.StdDev.Valid)

	heading := byName["HEADING_MAG"]
	assert.InDelta(t, 0, heading.StdDev.Float64, 1e-12, "constant channel")
}

func TestSaveSession_NoModel(t *testing.T) {
	s := openTestStore(t)
	err := s.WriteSession(context.Background(), &session.Result{Source: "missing.prf"})
	assert.Error(t, err)

	got, err := s.Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveSession_ProfileArrays(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	vel := [][]int16{{1, 2, 3}, {4, 5, 6}}
	amp := [][]uint8{{1, 2, 3}, {4, 5, 6}}
	stream := testutil.Stream(
		testutil.UserConfigFrame(testutil.UserConfig{Beams: 2, Cells: 3, Coord: 2}),
		testutil.Profiler(0x21, t0, vel, amp),
	)
	res, err := session.Decode(ctx, "profile.prf", bytes.NewReader(stream), session.Options{})
	require.NoError(t, err)

	id, err := s.SaveSession(ctx, res)
	require.NoError(t, err)

	_, values, err := s.Samples(ctx, id, "VEL2")
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.InDeltaSlice(t, []float64{0.004, 0.005, 0.006}, values[0], 1e-12)

	channels, err := s.Channels(ctx, id)
	require.NoError(t, err)
	for _, c := range channels {
		if c.Name == "VEL2" {
			assert.Equal(t, model.Array(3), c.Type)
		}
	}
}

func TestChannelStats(t *testing.T) {
	t.Parallel()

	m := model.New()
	h, err := m.EnsureChannel(model.ChannelSpec{Name: "V", Type: model.Array(2)})
	require.NoError(t, err)
	assert.Equal(t, Stats{}, ChannelStats(m, h))

	require.NoError(t, m.Append(h, t0, []float64{1, 2}))
	require.NoError(t, m.Append(h, t0, []float64{3, 4}))
	st := ChannelStats(m, h)
	assert.Equal(t, 4, st.N)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 4.0, st.Max)
	assert.InDelta(t, 2.5, st.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487358056, st.StdDev, 1e-12)

	one, _ := m.EnsureChannel(model.ChannelSpec{Name: "S", Type: model.Scalar})
	require.NoError(t, m.AppendScalar(one, t0, 7))
	assert.Equal(t, Stats{N: 1, Min: 7, Max: 7, Mean: 7}, ChannelStats(m, one))
	assert.Equal(t, Stats{}, ChannelStats(m, model.Handle(99)))
}
