// Package session drives one decode of a Nortek byte stream: frames are
// scanned, decoded in stream order under the evolving stream context, and
// appended to an output model. Recoverable faults are counted; fatal ones end
// the session with the partial model intact.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/ocean.telemetry/internal/config"
	"github.com/banshee-data/ocean.telemetry/internal/model"
	"github.com/banshee-data/ocean.telemetry/internal/nortek"
	"github.com/banshee-data/ocean.telemetry/internal/telemetry/cursor"
	"github.com/banshee-data/ocean.telemetry/internal/telemetry/frame"
	"github.com/banshee-data/ocean.telemetry/internal/timeutil"
)

// Options configures a session. The zero value decodes with the Nortek
// registry and default limits.
type Options struct {
	Registry *nortek.Registry
	Scanner  frame.Config
	State    nortek.StateOptions
	Clock    timeutil.Clock
	// Progress, when set, receives per-frame counters for live reporting.
	Progress *Progress
}

// OptionsFromConfig builds session options from the decoder configuration.
func OptionsFromConfig(cfg *config.DecoderConfig) Options {
	sc := frame.DefaultConfig()
	sc.MaxConsecutiveChecksumFailures = cfg.GetMaxConsecutiveChecksumFailures()
	return Options{
		Scanner: sc,
		State: nortek.StateOptions{
			WaveInterval:   cfg.GetWaveSampleInterval(),
			VectorInterval: cfg.GetVectorSampleInterval(),
			PressureOffset: cfg.GetPressureOffsetDbar(),
			VelocityScale:  cfg.GetVelocityScaleOverride(),
		},
	}
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = nortek.DefaultRegistry()
	}
	if o.Scanner.Sync == 0 {
		o.Scanner.Sync = nortek.Sync
	}
	if o.Scanner.Seed == 0 {
		o.Scanner.Seed = nortek.Seed
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	return o
}

// Result is the outcome of a session. It is returned even when the session
// ends early, holding everything decoded up to that point.
type Result struct {
	Source  string
	Model   *model.Model
	Summary Summary
	// Err is the error that ended the session, or nil after a clean end of
	// stream.
	Err error
}

// Session decodes one stream. It owns its StreamState and Model and must not
// be shared between goroutines.
type Session struct {
	source string
	opts   Options
	cur    *cursor.Cursor
	scan   *frame.Scanner
	state  *nortek.StreamState
	model  *model.Model
	sum    Summary
}

// New returns a session reading from r. source names the stream in logs and
// results.
func New(source string, r io.Reader, opts Options) *Session {
	opts = opts.withDefaults()
	cur := cursor.NewCursor(r)
	return &Session{
		source: source,
		opts:   opts,
		cur:    cur,
		scan:   frame.NewScanner(cur, opts.Registry, opts.Scanner),
		state:  nortek.NewStreamState(opts.State),
		model:  model.New(),
		sum:    Summary{RecordsByType: make(map[uint8]int)},
	}
}

// Run decodes until the end of the stream, a fatal error or cancellation.
// Cancellation is checked between frames, so context updates are never
// half-applied. The returned error is also recorded in Result.Err.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	start := s.opts.Clock.Now()
	err := s.loop(ctx)
	s.finish(err)
	s.sum.Elapsed = s.opts.Clock.Since(start)

	res := &Result{Source: s.source, Model: s.model, Summary: s.sum, Err: err}
	if err != nil {
		opsf("%s: stopped after %d frames: %v", s.source, s.sum.FramesAccepted, err)
	}
	diagf("%s: %s", s.source, s.sum)
	return res, err
}

func (s *Session) loop(ctx context.Context) error {
	rec := recorder{m: s.model}
	for {
		if err := ctx.Err(); err != nil {
			s.sum.Cancelled = true
			return err
		}

		fr, err := s.scan.Next()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, frame.ErrChecksumMismatch):
			s.sum.ChecksumFailures++
			if s.opts.Progress != nil {
				s.opts.Progress.addFailure()
			}
			continue
		case errors.Is(err, frame.ErrTooManyChecksumFailures):
			s.sum.ChecksumFailures++
			s.sum.Aborted = true
			return err
		case errors.Is(err, frame.ErrTruncated):
			s.sum.Truncated = true
			return err
		default:
			return fmt.Errorf("read %s: %w", s.source, err)
		}

		s.sum.FramesAccepted++
		if s.opts.Progress != nil {
			s.opts.Progress.addFrame(len(fr.Raw))
		}

		if err := s.handle(fr, rec); err != nil {
			return err
		}
	}
}

// handle decodes one accepted frame. Only a schema conflict is returned; every
// decode fault is counted and the frame dropped.
func (s *Session) handle(fr frame.Frame, rec recorder) error {
	r, delta, err := s.opts.Registry.Decode(fr, s.state)
	switch {
	case err == nil:
	case errors.Is(err, nortek.ErrUnknownRecordType):
		s.sum.UnknownTypeSkips++
		tracef("%s: skipped unknown type 0x%02X at offset %d", s.source, fr.TypeID, fr.Offset)
		return nil
	case errors.Is(err, nortek.ErrContextNotReady):
		s.sum.ContextNotReadySkips++
		tracef("%s: %v at offset %d", s.source, err, fr.Offset)
		return nil
	default:
		s.sum.DecodeErrors++
		diagf("%s: dropped frame at offset %d: %v", s.source, fr.Offset, err)
		return nil
	}

	if !delta.Empty() {
		s.state.Apply(delta)
		tracef("%s: 0x%02X updated stream context at offset %d", s.source, r.TypeID(), fr.Offset)
	}
	var ts time.Time
	if t, ok := r.(nortek.Timed); ok {
		ts = t.Time()
	}
	s.state.Observe(r.TypeID(), ts)
	s.sum.RecordsByType[r.TypeID()]++

	if err := rec.record(r, s.state); err != nil {
		return fmt.Errorf("record type 0x%02X at offset %d: %w", r.TypeID(), fr.Offset, err)
	}
	return nil
}

func (s *Session) finish(err error) {
	s.sum.BytesScanned = s.scan.Position()
	s.sum.SkippedBytes = s.scan.SkippedBytes()
	if err != nil {
		s.sum.FatalError = err.Error()
	}

	st := s.state
	for k, v := range st.Attributes {
		s.model.SetAttribute(k, v)
	}
	if st.Coord.OK {
		s.model.SetAttribute("coordinate_system", st.Coord.V.String())
	}
	if st.Beams.OK {
		s.model.SetAttribute("beam_count", strconv.Itoa(int(st.Beams.V)))
	}
	if st.Cells.OK {
		s.model.SetAttribute("cell_count", strconv.Itoa(int(st.Cells.V)))
	}
	if st.FirstTimestamp.OK {
		s.model.SetAttribute("first_timestamp", st.FirstTimestamp.V.UTC().Format(time.RFC3339))
	}
	s.model.SetAttribute("source", s.source)
}

// Decode runs a session over r and returns its result.
func Decode(ctx context.Context, source string, r io.Reader, opts Options) (*Result, error) {
	return New(source, r, opts).Run(ctx)
}
