// Package cursor provides a rewindable byte reader over any io.Reader.
//
// Instrument streams arrive from files, memory buffers or live serial ports.
// Only the first of these is seekable, so the cursor keeps every byte read
// since the last Release point and serves rewinds from that window.
package cursor

import (
	"errors"
	"fmt"
	"io"
)

// defaultChunk is the minimum number of bytes requested from the source per fill.
const defaultChunk = 4096

// ErrSeekOutOfRange is returned when SeekTo targets a position outside the
// retained window.
var ErrSeekOutOfRange = errors.New("cursor: seek position outside retained window")

// ShortReadError reports that fewer bytes than requested remained in the
// stream. It wraps io.ErrUnexpectedEOF.
type ShortReadError struct {
	Offset int64
	Want   int
	Got    int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("cursor: short read at offset %d: wanted %d bytes, got %d", e.Offset, e.Want, e.Got)
}

func (e *ShortReadError) Unwrap() error { return io.ErrUnexpectedEOF }

// Cursor is a forward reader with bounded rewind.
type Cursor struct {
	src  io.Reader
	buf  []byte // retained bytes; buf[0] is at absolute offset base
	base int64
	pos  int64 // absolute read position
	eof  bool
	err  error // sticky non-EOF source error
}

// NewCursor returns a cursor reading from r.
func NewCursor(r io.Reader) *Cursor {
	return &Cursor{src: r}
}

// Position returns the absolute offset of the next byte to be read.
func (c *Cursor) Position() int64 { return c.pos }

// fill ensures at least n bytes are available from pos, or the source is exhausted.
func (c *Cursor) fill(n int) {
	need := int(c.pos-c.base) + n
	for len(c.buf) < need && !c.eof && c.err == nil {
		want := need - len(c.buf)
		if want < defaultChunk {
			want = defaultChunk
		}
		start := len(c.buf)
		if cap(c.buf)-start < want {
			grown := make([]byte, start, start+want)
			copy(grown, c.buf)
			c.buf = grown
		}
		m, err := c.src.Read(c.buf[start : start+want])
		c.buf = c.buf[:start+m]
		if err == io.EOF {
			c.eof = true
		} else if err != nil {
			c.err = err
		}
	}
}

// Read returns exactly n bytes. It returns io.EOF when no bytes remain and a
// *ShortReadError when some but fewer than n remain; in the latter case the
// cursor is left at the end of the available data. The returned slice is only
// valid until the next call that may fill or release the buffer.
func (c *Cursor) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("cursor: negative read length %d", n)
	}
	c.fill(n)
	off := int(c.pos - c.base)
	avail := len(c.buf) - off
	if avail >= n {
		c.pos += int64(n)
		return c.buf[off : off+n], nil
	}
	if c.err != nil {
		return nil, c.err
	}
	if avail == 0 {
		return nil, io.EOF
	}
	start := c.pos
	c.pos += int64(avail)
	return nil, &ShortReadError{Offset: start, Want: n, Got: avail}
}

// ReadByte returns the next byte or io.EOF.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// SeekTo moves the cursor to an absolute position within the retained window.
func (c *Cursor) SeekTo(pos int64) error {
	if pos < c.base || pos > c.base+int64(len(c.buf)) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrSeekOutOfRange, pos, c.base, c.base+int64(len(c.buf)))
	}
	c.pos = pos
	return nil
}

// Release discards retained bytes before pos. Later seeks before pos fail.
func (c *Cursor) Release(pos int64) {
	if pos > c.pos {
		pos = c.pos
	}
	drop := int(pos - c.base)
	if drop <= 0 {
		return
	}
	if drop >= len(c.buf) {
		c.buf = c.buf[:0]
	} else {
		n := copy(c.buf, c.buf[drop:])
		c.buf = c.buf[:n]
	}
	c.base = pos
}
