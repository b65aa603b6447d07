package session

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ocean.telemetry/internal/testutil"
)

func TestSetLogWriters_Streams(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	stream := testutil.Stream(velocityFrame(0), testutil.Unknown(0x42, 8))
	_, err := run(t, stream, Options{})
	require.NoError(t, err)

	assert.Empty(t, ops.String(), "clean end logs nothing to ops")
	assert.True(t, strings.HasPrefix(diag.String(), "[session] "), diag.String())
	assert.Contains(t, diag.String(), "test.prf: frames=2")
	assert.Contains(t, trace.String(), "skipped unknown type 0x42")
	assert.Contains(t, trace.String(), "context not ready")
	assert.NotContains(t, trace.String(), "updated stream context")
}

func TestSetLogWriters_TracesContextUpdates(t *testing.T) {
	var trace bytes.Buffer
	SetLogWriters(nil, nil, &trace)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	stream := testutil.Stream(testutil.HeadConfig(0, 3, "AQD 1234"), velocityFrame(0))
	_, err := run(t, stream, Options{})
	require.NoError(t, err)
	assert.Contains(t, trace.String(), "test.prf: 0x04 updated stream context at offset 0")
	assert.Equal(t, 1, strings.Count(trace.String(), "updated stream context"))
}

func TestSetLogWriters_OpsOnFatal(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	_, err := run(t, testutil.Unknown(0x42, 32)[:20], Options{})
	require.Error(t, err)
	assert.Contains(t, ops.String(), "stopped after 0 frames")
}
