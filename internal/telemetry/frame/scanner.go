// Package frame recovers checksum-validated frames from an unindexed
// instrument byte stream.
//
// A frame is a sync byte, a type byte, an optional little-endian 16-bit length
// in words, a body and a trailing 16-bit checksum. The length is counted in
// words over the whole frame, header and checksum included. Some fixed-size
// types omit the length field; the Layouts supplied to the scanner decide
// which.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/ocean.telemetry/internal/telemetry/checksum"
	"github.com/banshee-data/ocean.telemetry/internal/telemetry/cursor"
)

const (
	// DefaultSync is the Nortek frame sync byte.
	DefaultSync byte = 0xA5

	// DefaultMaxConsecutiveChecksumFailures is the number of back-to-back
	// checksum failures tolerated before the stream is rejected.
	DefaultMaxConsecutiveChecksumFailures = 10

	// minFrameWords is sync+id, one length word and the checksum word.
	minFrameWords = 3
)

var (
	// ErrChecksumMismatch marks a candidate frame that failed validation. The
	// scanner has already rewound to one byte past the candidate sync byte.
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")

	// ErrTruncated marks a frame that runs past the end of the stream.
	ErrTruncated = errors.New("frame: truncated stream")

	// ErrTooManyChecksumFailures is returned once consecutive checksum
	// failures exceed the configured limit.
	ErrTooManyChecksumFailures = errors.New("frame: too many consecutive checksum failures")
)

// Error carries the stream offset and type of a rejected frame.
type Error struct {
	Offset int64
	TypeID uint8
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v at offset %d (type 0x%02X): %s", e.Err, e.Offset, e.TypeID, e.Detail)
	}
	return fmt.Sprintf("%v at offset %d (type 0x%02X)", e.Err, e.Offset, e.TypeID)
}

func (e *Error) Unwrap() error { return e.Err }

// Layouts tells the scanner how a frame type encodes its length.
type Layouts interface {
	// HasSizeField reports whether frames of this type carry a length word.
	// Unknown types are expected to report true.
	HasSizeField(id uint8) bool
	// FixedWords returns the registered frame length in words for fixed-size
	// types.
	FixedWords(id uint8) (uint16, bool)
}

// Frame is one checksum-validated unit of the stream.
type Frame struct {
	TypeID       uint8
	WordLength   uint16
	Offset       int64
	HasSizeField bool
	// Raw holds the whole frame from the sync byte through the checksum.
	Raw []byte
}

// Body returns the bytes between the header and the checksum.
func (f Frame) Body() []byte {
	h := 2
	if f.HasSizeField {
		h = 4
	}
	if len(f.Raw) < h+2 {
		return nil
	}
	return f.Raw[h : len(f.Raw)-2]
}

// State is the scanner state after the most recent call to Next.
type State int

const (
	SeekingSync State = iota
	HeaderRead
	BodyRead
	ChecksumVerified
	ChecksumFailed
	Truncated
)

func (s State) String() string {
	switch s {
	case SeekingSync:
		return "seeking_sync"
	case HeaderRead:
		return "header_read"
	case BodyRead:
		return "body_read"
	case ChecksumVerified:
		return "checksum_verified"
	case ChecksumFailed:
		return "checksum_failed"
	case Truncated:
		return "truncated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the protocol constants the scanner needs.
type Config struct {
	Sync byte
	Seed uint16
	// MaxConsecutiveChecksumFailures bounds back-to-back failures; a negative
	// value disables the limit and zero selects the default.
	MaxConsecutiveChecksumFailures int
}

// DefaultConfig returns the Nortek scanner configuration.
func DefaultConfig() Config {
	return Config{
		Sync:                           DefaultSync,
		Seed:                           checksum.NortekSeed,
		MaxConsecutiveChecksumFailures: DefaultMaxConsecutiveChecksumFailures,
	}
}

// Scanner yields frames from a cursor. It is not safe for concurrent use.
type Scanner struct {
	cur         *cursor.Cursor
	layouts     Layouts
	cfg         Config
	state       State
	consecutive int
	skipped     int64
}

// NewScanner returns a scanner reading frames from cur.
func NewScanner(cur *cursor.Cursor, layouts Layouts, cfg Config) *Scanner {
	if cfg.MaxConsecutiveChecksumFailures == 0 {
		cfg.MaxConsecutiveChecksumFailures = DefaultMaxConsecutiveChecksumFailures
	}
	return &Scanner{cur: cur, layouts: layouts, cfg: cfg}
}

// State returns the state reached by the last call to Next.
func (s *Scanner) State() State { return s.state }

// SkippedBytes returns the number of bytes discarded while seeking sync.
func (s *Scanner) SkippedBytes() int64 { return s.skipped }

// Position returns the cursor offset.
func (s *Scanner) Position() int64 { return s.cur.Position() }

// Next returns the next valid frame. It returns io.EOF at a clean end of
// stream, an error wrapping ErrChecksumMismatch for a rejected candidate
// (call Next again to continue), or an error wrapping ErrTruncated or
// ErrTooManyChecksumFailures, after which the stream must be abandoned.
func (s *Scanner) Next() (Frame, error) {
	s.state = SeekingSync
	start, err := s.seekSync()
	if err != nil {
		return Frame{}, err
	}
	s.cur.Release(start)

	s.state = HeaderRead
	id, err := s.cur.ReadByte()
	if err != nil {
		return Frame{}, s.truncated(start, 0, err)
	}

	headerLen := 2
	hasSize := s.layouts.HasSizeField(id)
	var words uint16
	if hasSize {
		lb, err := s.cur.Read(2)
		if err != nil {
			return Frame{}, s.truncated(start, id, err)
		}
		words = binary.LittleEndian.Uint16(lb)
		headerLen = 4
		if words < minFrameWords {
			return Frame{}, s.reject(start, id, fmt.Sprintf("declared length %d words is too small", words))
		}
		if fixed, ok := s.layouts.FixedWords(id); ok && fixed != words {
			return Frame{}, s.reject(start, id, fmt.Sprintf("declared length %d words, registry fixes %d", words, fixed))
		}
	} else {
		fixed, ok := s.layouts.FixedWords(id)
		if !ok {
			return Frame{}, s.reject(start, id, "no size field and no registered length")
		}
		words = fixed
	}

	s.state = BodyRead
	total := int(words) * 2
	if _, err := s.cur.Read(total - headerLen); err != nil {
		return Frame{}, s.truncated(start, id, err)
	}

	if err := s.cur.SeekTo(start); err != nil {
		return Frame{}, err
	}
	view, err := s.cur.Read(total)
	if err != nil {
		return Frame{}, err
	}
	if !checksum.Verify(s.cfg.Seed, view) {
		return Frame{}, s.reject(start, id, "")
	}

	s.state = ChecksumVerified
	s.consecutive = 0
	raw := make([]byte, total)
	copy(raw, view)
	tracef("frame type=0x%02X words=%d offset=%d", id, words, start)
	return Frame{
		TypeID:       id,
		WordLength:   words,
		Offset:       start,
		HasSizeField: hasSize,
		Raw:          raw,
	}, nil
}

func (s *Scanner) seekSync() (int64, error) {
	for {
		b, err := s.cur.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == s.cfg.Sync {
			return s.cur.Position() - 1, nil
		}
		s.skipped++
		if s.skipped%4096 == 0 {
			s.cur.Release(s.cur.Position())
		}
	}
}

// reject rewinds to one byte past the candidate sync byte.
func (s *Scanner) reject(start int64, id uint8, detail string) error {
	s.state = ChecksumFailed
	s.consecutive++
	if err := s.cur.SeekTo(start + 1); err != nil {
		return err
	}
	tracef("resync after type=0x%02X at offset %d: %s", id, start, detail)
	if s.cfg.MaxConsecutiveChecksumFailures > 0 && s.consecutive > s.cfg.MaxConsecutiveChecksumFailures {
		opsf("giving up after %d consecutive checksum failures at offset %d", s.consecutive, start)
		return &Error{Offset: start, TypeID: id, Detail: detail, Err: ErrTooManyChecksumFailures}
	}
	return &Error{Offset: start, TypeID: id, Detail: detail, Err: ErrChecksumMismatch}
}

func (s *Scanner) truncated(start int64, id uint8, cause error) error {
	if !errors.Is(cause, io.EOF) && !errors.Is(cause, io.ErrUnexpectedEOF) {
		return cause
	}
	s.state = Truncated
	diagf("stream ends inside frame type=0x%02X starting at offset %d", id, start)
	return &Error{Offset: start, TypeID: id, Detail: cause.Error(), Err: ErrTruncated}
}
