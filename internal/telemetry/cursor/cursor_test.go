package cursor

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_ExactAndEOF(t *testing.T) {
	c := NewCursor(bytes.NewReader([]byte{1, 2, 3, 4}))

	b, err := c.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	assert.Equal(t, int64(3), c.Position())

	b, err = c.Read(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, b)

	_, err = c.Read(1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRead_ShortReadIsExplicit(t *testing.T) {
	c := NewCursor(bytes.NewReader([]byte{1, 2, 3}))
	_, err := c.Read(1)
	require.NoError(t, err)

	b, err := c.Read(5)
	assert.Nil(t, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var short *ShortReadError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, int64(1), short.Offset)
	assert.Equal(t, 5, short.Want)
	assert.Equal(t, 2, short.Got)
	assert.Equal(t, int64(3), c.Position())
}

func TestRead_OneByteReader(t *testing.T) {
	data := bytes.Repeat([]byte{0xA5, 0x01}, 3000)
	c := NewCursor(iotest.OneByteReader(bytes.NewReader(data)))

	b, err := c.Read(len(data))
	require.NoError(t, err)
	assert.Equal(t, data, b)
}

func TestRead_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	c := NewCursor(iotest.ErrReader(boom))
	_, err := c.Read(2)
	assert.ErrorIs(t, err, boom)
}

func TestSeekTo_RewindWithinWindow(t *testing.T) {
	c := NewCursor(bytes.NewReader([]byte{10, 11, 12, 13, 14}))
	_, err := c.Read(4)
	require.NoError(t, err)

	require.NoError(t, c.SeekTo(1))
	b, err := c.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(11), b)
}

// Cursor's rewind takes an absolute position only, so it must not be
// mistaken for an io.Seeker.
func TestSeekTo_NotAnIOSeeker(t *testing.T) {
	var c interface{} = NewCursor(bytes.NewReader(nil))
	_, ok := c.(io.Seeker)
	assert.False(t, ok)
}

func TestRelease_DropsHistory(t *testing.T) {
	c := NewCursor(bytes.NewReader([]byte{10, 11, 12, 13, 14}))
	_, err := c.Read(3)
	require.NoError(t, err)

	c.Release(2)
	assert.ErrorIs(t, c.SeekTo(1), ErrSeekOutOfRange)
	require.NoError(t, c.SeekTo(2))

	b, err := c.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 13, 14}, b)
}

func TestRelease_NeverPastPosition(t *testing.T) {
	c := NewCursor(bytes.NewReader([]byte{1, 2, 3}))
	_, err := c.Read(1)
	require.NoError(t, err)
	c.Release(100)
	require.NoError(t, c.SeekTo(1))
	b, err := c.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, b)
}

func TestRead_NegativeLength(t *testing.T) {
	c := NewCursor(bytes.NewReader(nil))
	_, err := c.Read(-1)
	assert.Error(t, err)
}
