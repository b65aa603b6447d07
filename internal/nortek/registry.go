// Package nortek decodes Nortek instrument records (Aquadopp, Aquadopp
// Profiler, AWAC and Vector) from checksum-validated frames.
//
// The Registry is the protocol description: one Descriptor per record type,
// listing its fields, byte layout and the stream context it depends on. It is
// built once and shared read-only between decode sessions. Decoding is pure;
// context changes are returned as a Delta for the caller to apply.
package nortek

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownRecordType is returned for a type id with no descriptor.
	ErrUnknownRecordType = errors.New("nortek: unknown record type")

	// ErrContextNotReady is returned when a record depends on stream context
	// (beam count, cell count, coordinate system, burst header) that has not
	// been seen yet.
	ErrContextNotReady = errors.New("nortek: stream context not ready")

	// ErrLayoutMismatch is returned when a frame's length disagrees with the
	// layout resolved from the stream context.
	ErrLayoutMismatch = errors.New("nortek: frame length does not match layout")

	// ErrInvalidTimestamp is returned for a clock field that is not valid BCD
	// or not a real date.
	ErrInvalidTimestamp = errors.New("nortek: invalid timestamp")
)

// Record type ids.
const (
	IDUserConfiguration     uint8 = 0x00
	IDAquadoppVelocity      uint8 = 0x01
	IDHeadConfiguration     uint8 = 0x04
	IDHardwareConfiguration uint8 = 0x05
	IDAquadoppDiagHeader    uint8 = 0x06
	IDVectorVelocity        uint8 = 0x10
	IDVectorSystem          uint8 = 0x11
	IDVectorVelocityHeader  uint8 = 0x12
	IDAWACVelocityProfile   uint8 = 0x20
	IDAquadoppProfiler      uint8 = 0x21
	IDAWACWaveData          uint8 = 0x30
	IDAWACWaveHeader        uint8 = 0x31
	IDAquadoppDiagnostics   uint8 = 0x80
)

// Kind is the binary encoding of a field.
type Kind int

const (
	KindU8 Kind = iota
	KindI16
	KindU16
	KindU32
	KindClock // 6 packed BCD bytes
	KindText  // Count bytes of ASCII
	KindBytes // Count opaque bytes
)

func (k Kind) size() int {
	switch k {
	case KindU8, KindText, KindBytes:
		return 1
	case KindI16, KindU16:
		return 2
	case KindU32:
		return 4
	case KindClock:
		return 6
	}
	return 0
}

// Repeat describes how many times a field repeats.
type Repeat int

const (
	// RepeatCount repeats the field FieldSpec.Count times (1 if zero).
	RepeatCount Repeat = iota
	// RepeatBeamsTimesCells repeats the field beams*cells times, resolved
	// from the stream context.
	RepeatBeamsTimesCells
)

// FieldSpec declares one field. Offset is absolute from the sync byte; a
// negative offset places the field directly after the previous one.
type FieldSpec struct {
	Name   string
	Kind   Kind
	Offset int
	Count  int
	Repeat Repeat
}

// Needs is a set of stream context requirements.
type Needs uint8

const (
	NeedBeams Needs = 1 << iota
	NeedCells
	NeedCoord
	NeedWaveBurst
	NeedVectorBurst
)

// Descriptor describes one record type.
type Descriptor struct {
	ID   uint8
	Name string
	// Words is the frame length in words for fixed-size types, zero when the
	// length depends on the stream context.
	Words        uint16
	HasSizeField bool
	Fields       []FieldSpec
	Needs        Needs

	decode decodeFunc
	layout *Layout // cached for fixed layouts
}

// Variable reports whether the layout contains context-dependent repeats.
func (d *Descriptor) Variable() bool {
	for _, f := range d.Fields {
		if f.Repeat == RepeatBeamsTimesCells {
			return true
		}
	}
	return false
}

// FieldNames returns the declared field names in order.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Field is a field placed at a concrete offset.
type Field struct {
	Name   string
	Kind   Kind
	Offset int
	Count  int
}

// Layout is a concrete field list for one frame.
type Layout struct {
	Fields []Field
	// Bytes is the expected frame length including header and checksum.
	Bytes  int
	byName map[string]Field
}

// Field returns the named field.
func (l *Layout) Field(name string) (Field, bool) {
	f, ok := l.byName[name]
	return f, ok
}

// Registry maps type ids to descriptors.
type Registry struct {
	byID map[uint8]*Descriptor
}

// NewRegistry builds a registry from descriptors, resolving every fixed layout.
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[uint8]*Descriptor, len(descs))}
	for _, d := range descs {
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("nortek: duplicate descriptor for type 0x%02X", d.ID)
		}
		if !d.Variable() {
			l, err := resolve(d, 0)
			if err != nil {
				return nil, err
			}
			if d.Words != 0 && l.Bytes > int(d.Words)*2 {
				return nil, fmt.Errorf("nortek: %s fields need %d bytes, frame has %d", d.Name, l.Bytes, int(d.Words)*2)
			}
			l.Bytes = int(d.Words) * 2
			d.layout = &l
		}
		r.byID[d.ID] = d
	}
	return r, nil
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id uint8) (*Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownRecordType, id)
	}
	return d, nil
}

// IDs returns the registered type ids in ascending order.
func (r *Registry) IDs() []uint8 {
	ids := make([]uint8, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasSizeField reports whether frames of this type carry a length word.
// Unknown types are assumed to.
func (r *Registry) HasSizeField(id uint8) bool {
	d, ok := r.byID[id]
	return !ok || d.HasSizeField
}

// FixedWords returns the fixed frame length of id in words.
func (r *Registry) FixedWords(id uint8) (uint16, bool) {
	d, ok := r.byID[id]
	if !ok || d.Words == 0 {
		return 0, false
	}
	return d.Words, true
}

// ResolveLayout returns the concrete layout of d under st. It returns
// ErrContextNotReady when d repeats by beams*cells and either is unknown.
func (r *Registry) ResolveLayout(d *Descriptor, st *StreamState) (Layout, error) {
	if d.layout != nil {
		return *d.layout, nil
	}
	if !st.Beams.OK || !st.Cells.OK {
		return Layout{}, fmt.Errorf("%w: %s needs beam and cell counts", ErrContextNotReady, d.Name)
	}
	return resolve(d, int(st.Beams.V)*int(st.Cells.V))
}

func resolve(d *Descriptor, beamsCells int) (Layout, error) {
	l := Layout{byName: make(map[string]Field, len(d.Fields))}
	next := 0
	for _, fs := range d.Fields {
		count := fs.Count
		if count == 0 {
			count = 1
		}
		if fs.Repeat == RepeatBeamsTimesCells {
			count = beamsCells
		}
		off := fs.Offset
		if off < 0 {
			off = next
		}
		f := Field{Name: fs.Name, Kind: fs.Kind, Offset: off, Count: count}
		if _, dup := l.byName[f.Name]; dup {
			return Layout{}, fmt.Errorf("nortek: %s declares field %q twice", d.Name, f.Name)
		}
		l.Fields = append(l.Fields, f)
		l.byName[f.Name] = f
		if end := off + count*fs.Kind.size(); end > next {
			next = end
		}
	}
	// Variable frames are padded to a whole word before the checksum.
	if next%2 == 1 {
		next++
	}
	l.Bytes = next + 2
	return l, nil
}

// checkNeeds verifies the non-layout context a descriptor depends on.
func checkNeeds(d *Descriptor, st *StreamState) error {
	missing := func(what string) error {
		return fmt.Errorf("%w: %s needs %s", ErrContextNotReady, d.Name, what)
	}
	if d.Needs&NeedBeams != 0 && !st.Beams.OK {
		return missing("beam count")
	}
	if d.Needs&NeedCells != 0 && !st.Cells.OK {
		return missing("cell count")
	}
	if d.Needs&NeedCoord != 0 && !st.Coord.OK {
		return missing("coordinate system")
	}
	if d.Needs&NeedWaveBurst != 0 && !st.WaveBurst.OK {
		return missing("wave burst header")
	}
	if d.Needs&NeedVectorBurst != 0 && !st.VectorBurst.OK {
		return missing("vector burst header")
	}
	return nil
}
