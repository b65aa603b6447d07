// Package model holds decoded telemetry as named, time-indexed channels.
//
// Channels are created on first use and are append-only. A channel's element
// type, unit and timebase are fixed when it is created; asking for the same
// name with a different shape is a schema conflict. A Model belongs to one
// decode session and is not safe for concurrent mutation.
package model

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"
)

// ErrSchemaConflict is returned when a channel is redeclared with a different
// element type, unit or timebase, or appended with the wrong width.
var ErrSchemaConflict = errors.New("model: schema conflict")

// ErrUnknownChannel is returned for a handle or name with no channel.
var ErrUnknownChannel = errors.New("model: unknown channel")

// Timebase names the time axis a channel is indexed by.
type Timebase string

const (
	TimebaseTime Timebase = "TIME"
	TimebaseWave Timebase = "WAVE_TIME"
)

// ElementType is the shape of one row. Width 1 is a scalar, otherwise a
// fixed-length float64 array.
type ElementType struct {
	Width int
}

// Scalar is the element type of single-valued channels.
var Scalar = ElementType{Width: 1}

// Array returns the element type of an n-wide channel.
func Array(n int) ElementType { return ElementType{Width: n} }

func (e ElementType) String() string {
	if e.Width == 1 {
		return "float64"
	}
	return fmt.Sprintf("float64[%d]", e.Width)
}

// ChannelSpec declares a channel.
type ChannelSpec struct {
	Name     string
	Type     ElementType
	Unit     string
	Timebase Timebase
}

// ChannelInfo describes a channel and its current row count.
type ChannelInfo struct {
	ChannelSpec
	Rows int
}

// Handle identifies a channel within one Model.
type Handle int

type channel struct {
	spec   ChannelSpec
	times  []time.Time
	values []float64 // rows of spec.Type.Width values, flattened
}

// Model is a set of channels plus instrument attributes.
type Model struct {
	channels []*channel
	byName   map[string]Handle
	attrs    map[string]string
}

// New returns an empty Model.
func New() *Model {
	return &Model{
		byName: make(map[string]Handle),
		attrs:  make(map[string]string),
	}
}

// EnsureChannel returns the handle for spec.Name, creating the channel on
// first use. It is idempotent for an identical spec.
func (m *Model) EnsureChannel(spec ChannelSpec) (Handle, error) {
	if spec.Type.Width < 1 {
		return 0, fmt.Errorf("model: channel %q has width %d", spec.Name, spec.Type.Width)
	}
	if spec.Timebase == "" {
		spec.Timebase = TimebaseTime
	}
	if h, ok := m.byName[spec.Name]; ok {
		have := m.channels[h].spec
		if have != spec {
			return 0, fmt.Errorf("%w: channel %q is %s %q on %s, requested %s %q on %s",
				ErrSchemaConflict, spec.Name,
				have.Type, have.Unit, have.Timebase,
				spec.Type, spec.Unit, spec.Timebase)
		}
		return h, nil
	}
	h := Handle(len(m.channels))
	m.channels = append(m.channels, &channel{spec: spec})
	m.byName[spec.Name] = h
	return h, nil
}

func (m *Model) get(h Handle) (*channel, error) {
	if h < 0 || int(h) >= len(m.channels) {
		return nil, fmt.Errorf("%w: handle %d", ErrUnknownChannel, h)
	}
	return m.channels[h], nil
}

// Append adds one row. The value length must equal the channel width.
func (m *Model) Append(h Handle, t time.Time, value []float64) error {
	c, err := m.get(h)
	if err != nil {
		return err
	}
	if len(value) != c.spec.Type.Width {
		return fmt.Errorf("%w: channel %q is %s, row has %d values",
			ErrSchemaConflict, c.spec.Name, c.spec.Type, len(value))
	}
	c.times = append(c.times, t)
	c.values = append(c.values, value...)
	return nil
}

// AppendScalar adds a one-value row.
func (m *Model) AppendScalar(h Handle, t time.Time, v float64) error {
	return m.Append(h, t, []float64{v})
}

// RowCount returns the number of rows in h, or 0 for an unknown handle.
func (m *Model) RowCount(h Handle) int {
	c, err := m.get(h)
	if err != nil {
		return 0
	}
	return len(c.times)
}

// Lookup returns the handle for name.
func (m *Model) Lookup(name string) (Handle, bool) {
	h, ok := m.byName[name]
	return h, ok
}

// ListChannels returns every channel in creation order.
func (m *Model) ListChannels() []ChannelInfo {
	out := make([]ChannelInfo, len(m.channels))
	for i, c := range m.channels {
		out[i] = ChannelInfo{ChannelSpec: c.spec, Rows: len(c.times)}
	}
	return out
}

// ReadChannel iterates the rows of h in append order. The yielded slice
// aliases model storage and must not be modified or retained.
func (m *Model) ReadChannel(h Handle) iter.Seq2[time.Time, []float64] {
	return func(yield func(time.Time, []float64) bool) {
		c, err := m.get(h)
		if err != nil {
			return
		}
		w := c.spec.Type.Width
		for i, t := range c.times {
			if !yield(t, c.values[i*w:(i+1)*w:(i+1)*w]) {
				return
			}
		}
	}
}

// Column returns element i of every row of h. Scalars use i = 0.
func (m *Model) Column(h Handle, i int) []float64 {
	c, err := m.get(h)
	if err != nil || i < 0 || i >= c.spec.Type.Width {
		return nil
	}
	w := c.spec.Type.Width
	out := make([]float64, len(c.times))
	for r := range out {
		out[r] = c.values[r*w+i]
	}
	return out
}

// SetAttribute records instrument metadata.
func (m *Model) SetAttribute(key, value string) { m.attrs[key] = value }

// Attributes returns a copy of the instrument metadata.
func (m *Model) Attributes() map[string]string {
	out := make(map[string]string, len(m.attrs))
	for k, v := range m.attrs {
		out[k] = v
	}
	return out
}

// AttributeKeys returns attribute keys in sorted order.
func (m *Model) AttributeKeys() []string {
	keys := make([]string, 0, len(m.attrs))
	for k := range m.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
