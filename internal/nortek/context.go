package nortek

import (
	"fmt"
	"time"
)

// Optional holds a value that may not have been seen yet.
type Optional[T any] struct {
	V  T
	OK bool
}

// Some returns a set Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{V: v, OK: true} }

// CoordSystem is the frame velocities are reported in.
type CoordSystem uint8

const (
	CoordENU CoordSystem = iota
	CoordXYZ
	CoordBeam
)

func (c CoordSystem) String() string {
	switch c {
	case CoordENU:
		return "ENU"
	case CoordXYZ:
		return "XYZ"
	case CoordBeam:
		return "BEAM"
	default:
		return fmt.Sprintf("coord(%d)", uint8(c))
	}
}

func coordFromRaw(v uint16) (CoordSystem, bool) {
	if v > uint16(CoordBeam) {
		return 0, false
	}
	return CoordSystem(v), true
}

// Calibration is a linear correction applied as raw*Scale + Offset.
type Calibration struct {
	Scale  float64
	Offset float64
}

// Apply returns the calibrated value of raw.
func (c Calibration) Apply(raw float64) float64 { return raw*c.Scale + c.Offset }

// Calibration keys.
const (
	CalVelocity = "velocity"
	CalPressure = "pressure"
)

// Burst tracks an open wave or Vector burst.
type Burst struct {
	Start    time.Time
	Records  int
	Interval time.Duration
	// Next is the index of the next sample in the burst.
	Next int
}

// SampleTime returns the timestamp of sample i.
func (b Burst) SampleTime(i int) time.Time {
	return b.Start.Add(time.Duration(i) * b.Interval)
}

// StreamState is the per-stream context discovered while decoding. One
// StreamState belongs to exactly one session.
type StreamState struct {
	Beams       Optional[uint8]
	Cells       Optional[uint16]
	Coord       Optional[CoordSystem]
	Calibration map[string]Calibration

	FirstTimestamp Optional[time.Time]
	SampleIndex    map[uint8]int

	WaveBurst      Optional[Burst]
	VectorBurst    Optional[Burst]
	WaveInterval   time.Duration
	VectorInterval time.Duration

	// Attributes collects instrument metadata (serial numbers, firmware,
	// head frequency) for the output model.
	Attributes map[string]string
}

// StateOptions seeds a new StreamState.
type StateOptions struct {
	WaveInterval   time.Duration
	VectorInterval time.Duration
	// PressureOffset is added to every pressure value, in dbar.
	PressureOffset float64
	// VelocityScale, when non-zero, overrides the velocity scale announced by
	// the user configuration.
	VelocityScale float64
}

// Default burst sample intervals.
const (
	DefaultWaveInterval   = 500 * time.Millisecond
	DefaultVectorInterval = time.Second / 16
)

// NewStreamState returns an empty context.
func NewStreamState(opts StateOptions) *StreamState {
	if opts.WaveInterval <= 0 {
		opts.WaveInterval = DefaultWaveInterval
	}
	if opts.VectorInterval <= 0 {
		opts.VectorInterval = DefaultVectorInterval
	}
	velScale := 0.001
	if opts.VelocityScale != 0 {
		velScale = opts.VelocityScale
	}
	st := &StreamState{
		Calibration: map[string]Calibration{
			CalVelocity: {Scale: velScale},
			CalPressure: {Scale: 1, Offset: opts.PressureOffset},
		},
		SampleIndex:    make(map[uint8]int),
		WaveInterval:   opts.WaveInterval,
		VectorInterval: opts.VectorInterval,
		Attributes:     make(map[string]string),
	}
	if opts.VelocityScale != 0 {
		st.Attributes["velocity_scale_override"] = fmt.Sprintf("%g", opts.VelocityScale)
	}
	return st
}

// cal returns the calibration for key, or identity.
func (st *StreamState) cal(key string) Calibration {
	if c, ok := st.Calibration[key]; ok {
		return c
	}
	return Calibration{Scale: 1}
}

// Delta is the context change a decoded record implies.
type Delta struct {
	Beams       Optional[uint8]
	Cells       Optional[uint16]
	Coord       Optional[CoordSystem]
	Calibration map[string]Calibration
	Attributes  map[string]string

	// OpenWaveBurst and OpenVectorBurst start a new burst.
	OpenWaveBurst   Optional[Burst]
	OpenVectorBurst Optional[Burst]
	// AdvanceWave and AdvanceVector consume one sample of the open burst.
	AdvanceWave   bool
	AdvanceVector bool
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return !d.Beams.OK && !d.Cells.OK && !d.Coord.OK &&
		len(d.Calibration) == 0 && len(d.Attributes) == 0 &&
		!d.OpenWaveBurst.OK && !d.OpenVectorBurst.OK &&
		!d.AdvanceWave && !d.AdvanceVector
}

// Apply merges d into st.
func (st *StreamState) Apply(d Delta) {
	if d.Beams.OK {
		st.Beams = d.Beams
	}
	if d.Cells.OK {
		st.Cells = d.Cells
	}
	if d.Coord.OK {
		st.Coord = d.Coord
	}
	for k, c := range d.Calibration {
		if k == CalVelocity && st.Attributes["velocity_scale_override"] != "" {
			continue
		}
		st.Calibration[k] = c
	}
	for k, v := range d.Attributes {
		st.Attributes[k] = v
	}
	if d.OpenWaveBurst.OK {
		st.WaveBurst = d.OpenWaveBurst
	}
	if d.OpenVectorBurst.OK {
		st.VectorBurst = d.OpenVectorBurst
	}
	if d.AdvanceWave && st.WaveBurst.OK {
		st.WaveBurst.V.Next++
	}
	if d.AdvanceVector && st.VectorBurst.OK {
		st.VectorBurst.V.Next++
	}
}

// Observe records that a record of type id was emitted at t.
func (st *StreamState) Observe(id uint8, t time.Time) {
	st.SampleIndex[id]++
	if !t.IsZero() && !st.FirstTimestamp.OK {
		st.FirstTimestamp = Some(t)
	}
}
