package nortek

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClock(t *testing.T) {
	t.Parallel()

	got, err := DecodeClock([]byte{0x30, 0x45, 0x15, 0x12, 0x24, 0x03})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC), got)
}

func TestClock_RoundTripEveryYear(t *testing.T) {
	t.Parallel()

	for y := 2000; y <= 2099; y++ {
		want := time.Date(y, time.Month(1+y%12), 1+y%28, y%24, y%60, (y*7)%60, 0, time.UTC)
		b, err := EncodeClock(want)
		require.NoError(t, err, "year %d", y)
		got, err := DecodeClock(b[:])
		require.NoError(t, err, "year %d", y)
		assert.True(t, want.Equal(got), "year %d: got %v want %v", y, got, want)
	}
}

func TestEncodeClock_OutOfRange(t *testing.T) {
	t.Parallel()

	_, err := EncodeClock(time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))
	_, err = EncodeClock(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))
}

func TestDecodeClock_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
	}{
		{"short", []byte{0x00, 0x00, 0x01}},
		{"non-BCD nibble", []byte{0x3A, 0x00, 0x01, 0x00, 0x24, 0x01}},
		{"month zero", []byte{0x00, 0x00, 0x01, 0x00, 0x24, 0x00}},
		{"month 13", []byte{0x00, 0x00, 0x01, 0x00, 0x24, 0x13}},
		{"day zero", []byte{0x00, 0x00, 0x00, 0x00, 0x24, 0x01}},
		{"hour 24", []byte{0x00, 0x00, 0x01, 0x24, 0x24, 0x01}},
		{"february 30", []byte{0x00, 0x00, 0x30, 0x00, 0x23, 0x02}},
		{"all zero", make([]byte, 6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClock(tt.in)
			assert.ErrorIs(t, err, ErrInvalidTimestamp)
		})
	}
}

func TestDecodeClock_LeapDay(t *testing.T) {
	t.Parallel()

	got, err := DecodeClock([]byte{0x00, 0x00, 0x29, 0x00, 0x24, 0x02})
	require.NoError(t, err)
	assert.Equal(t, 29, got.Day())
}
