package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Summary holds the counters of one decode session.
type Summary struct {
	FramesAccepted       int
	ChecksumFailures     int
	UnknownTypeSkips     int
	ContextNotReadySkips int
	// DecodeErrors counts frames whose layout or timestamp was invalid.
	DecodeErrors int
	Truncated    bool
	// Aborted is set when consecutive checksum failures exceeded the limit.
	Aborted   bool
	Cancelled bool
	// FatalError is the message of the error that ended the session early.
	FatalError    string
	BytesScanned  int64
	SkippedBytes  int64
	RecordsByType map[uint8]int
	Elapsed       time.Duration
}

// String renders the summary on one line, record types in id order.
func (s Summary) String() string {
	ids := make([]int, 0, len(s.RecordsByType))
	for id := range s.RecordsByType {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	var recs []string
	for _, id := range ids {
		recs = append(recs, fmt.Sprintf("0x%02X:%d", id, s.RecordsByType[uint8(id)]))
	}
	out := fmt.Sprintf("frames=%d checksum_failures=%d unknown_type_skips=%d context_not_ready_skips=%d decode_errors=%d truncated=%t bytes=%d records=[%s]",
		s.FramesAccepted, s.ChecksumFailures, s.UnknownTypeSkips, s.ContextNotReadySkips,
		s.DecodeErrors, s.Truncated, s.BytesScanned, strings.Join(recs, " "))
	if s.FatalError != "" {
		out += " fatal=" + s.FatalError
	}
	return out
}

// Progress tracks counters of a running session for periodic reporting. It is
// safe for concurrent use.
type Progress struct {
	mu        sync.Mutex
	frames    int64
	bytes     int64
	failures  int64
	lastReset time.Time
}

// NewProgress creates a Progress whose first interval starts at now.
func NewProgress(now time.Time) *Progress {
	return &Progress{lastReset: now}
}

func (p *Progress) addFrame(bytes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	p.bytes += int64(bytes)
}

func (p *Progress) addFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
}

// GetAndReset returns the counters since the last call and resets them.
func (p *Progress) GetAndReset(now time.Time) (frames, bytes, failures int64, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	duration = now.Sub(p.lastReset)
	frames, bytes, failures = p.frames, p.bytes, p.failures
	p.frames, p.bytes, p.failures = 0, 0, 0
	p.lastReset = now
	return
}

// Log writes the interval counters to the diag stream.
func (p *Progress) Log(now time.Time) {
	frames, bytes, failures, d := p.GetAndReset(now)
	if frames == 0 && failures == 0 {
		return
	}
	secs := d.Seconds()
	if secs <= 0 {
		secs = 1
	}
	diagf("stream stats (/sec): %.1f frames, %.1f bytes, %d checksum failures in %s",
		float64(frames)/secs, float64(bytes)/secs, failures, d.Round(time.Millisecond))
}
