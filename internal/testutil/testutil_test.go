package testutil

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ocean.telemetry/internal/telemetry/checksum"
)

var t0 = time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("test error"))
}

func TestBuilders_SealedAndSized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame []byte
		id    byte
		words int
	}{
		{"head config", HeadConfig(0, 3, "AQD 1234"), 0x04, 112},
		{"hardware config", HardwareConfig("AQD 1234", "3.37"), 0x05, 24},
		{"user config", UserConfigFrame(UserConfig{Beams: 3, Cells: 4}), 0x00, 256},
		{"aquadopp velocity", AquadoppVelocity(t0, [3]int16{100, -200, 300}, [3]uint8{1, 2, 3}), 0x01, 21},
		{"wave header", WaveHeader(t0, 4), 0x31, 30},
		{"wave sample", WaveSample(10000, [3]int16{1, 2, 3}), 0x30, 12},
		{"vector header", VectorHeader(t0, 2), 0x12, 21},
		{"vector system", VectorSystem(t0), 0x11, 14},
		{"unknown", Unknown(0x42, 8), 0x42, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, tt.frame, tt.words*2)
			assert.Equal(t, Sync, tt.frame[0])
			assert.Equal(t, tt.id, tt.frame[1])
			assert.Equal(t, uint16(tt.words), binary.LittleEndian.Uint16(tt.frame[2:]))
			assert.True(t, checksum.Verify(checksum.NortekSeed, tt.frame))
		})
	}
}

func TestVectorVelocity_Unsized(t *testing.T) {
	t.Parallel()

	f := VectorVelocity(7, 0x012345, [3]int16{1, 2, 3})
	require.Len(t, f, 24)
	assert.Equal(t, byte(0x10), f[1])
	assert.Equal(t, byte(7), f[3])
	assert.Equal(t, byte(0x01), f[4])
	assert.Equal(t, uint16(0x2345), binary.LittleEndian.Uint16(f[6:]))
	assert.True(t, checksum.Verify(checksum.NortekSeed, f))
}

func TestProfilerWords(t *testing.T) {
	t.Parallel()

	// 30 header bytes + 3*4*3 array bytes + checksum.
	assert.Equal(t, 34, ProfilerWords(0x21, 3, 4))
	// Odd array bytes are padded to a whole word.
	assert.Equal(t, 18, ProfilerWords(0x21, 1, 1))
	assert.Equal(t, 78, ProfilerWords(0x20, 3, 4))
}

func TestProfiler_ArrayPlacement(t *testing.T) {
	t.Parallel()

	vel := [][]int16{{10, 11}, {20, 21}, {30, 31}}
	amp := [][]uint8{{1, 2}, {3, 4}, {5, 6}}
	f := Profiler(0x21, t0, vel, amp)

	assert.Equal(t, int16(21), int16(binary.LittleEndian.Uint16(f[30+2*3:])))
	assert.Equal(t, uint8(6), f[30+12+5])
	assert.True(t, checksum.Verify(checksum.NortekSeed, f))
}

func TestClock_PackedBCD(t *testing.T) {
	t.Parallel()

	f := NewFrame(0x31, 30).Clock(4, t0).Bytes()
	assert.Equal(t, []byte{0x30, 0x45, 0x15, 0x12, 0x24, 0x03}, f[4:10])
}

func TestStream(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{1, 2, 3}, Stream([]byte{1}, []byte{2, 3}))
	assert.Empty(t, Stream())
}
