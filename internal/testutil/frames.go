package testutil

import (
	"encoding/binary"
	"time"

	"github.com/banshee-data/ocean.telemetry/internal/telemetry/checksum"
)

// Sync is the frame start byte.
const Sync byte = 0xA5

// FrameBuilder fills a frame buffer by absolute byte offset.
type FrameBuilder struct {
	buf []byte
}

// NewFrame starts a frame of the given length in words that carries a size
// field.
func NewFrame(id byte, words int) *FrameBuilder {
	b := &FrameBuilder{buf: make([]byte, words*2)}
	b.buf[0] = Sync
	b.buf[1] = id
	binary.LittleEndian.PutUint16(b.buf[2:], uint16(words))
	return b
}

// NewUnsizedFrame starts a frame with a two byte header.
func NewUnsizedFrame(id byte, words int) *FrameBuilder {
	b := &FrameBuilder{buf: make([]byte, words*2)}
	b.buf[0] = Sync
	b.buf[1] = id
	return b
}

func (b *FrameBuilder) U8(off int, v uint8) *FrameBuilder {
	b.buf[off] = v
	return b
}

func (b *FrameBuilder) U16(off int, v uint16) *FrameBuilder {
	binary.LittleEndian.PutUint16(b.buf[off:], v)
	return b
}

func (b *FrameBuilder) I16(off int, v int16) *FrameBuilder {
	return b.U16(off, uint16(v))
}

func (b *FrameBuilder) U32(off int, v uint32) *FrameBuilder {
	binary.LittleEndian.PutUint32(b.buf[off:], v)
	return b
}

// Clock writes t as a packed BCD instrument clock.
func (b *FrameBuilder) Clock(off int, t time.Time) *FrameBuilder {
	t = t.UTC()
	bcd := func(v int) byte { return byte((v/10)<<4 | v%10) }
	copy(b.buf[off:], []byte{
		bcd(t.Minute()), bcd(t.Second()), bcd(t.Day()),
		bcd(t.Hour()), bcd(t.Year() - 2000), bcd(int(t.Month())),
	})
	return b
}

// Raw copies p into the frame at off.
func (b *FrameBuilder) Raw(off int, p []byte) *FrameBuilder {
	copy(b.buf[off:], p)
	return b
}

// Bytes seals the checksum and returns the frame.
func (b *FrameBuilder) Bytes() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	checksum.Seal(checksum.NortekSeed, out)
	return out
}

// Sensor holds the raw housekeeping block of velocity frames.
type Sensor struct {
	Heading, Pitch, Roll int16
	PressureMSB          uint8
	PressureLSW          uint16
	Temperature          int16
	Battery, SoundSpeed  uint16
}

// DefaultSensor decodes to heading 123.4, pitch -1.5, roll 2.7, pressure
// 10.123 dbar, temperature 15.5 C, battery 12.0 V and sound speed 1500 m/s.
var DefaultSensor = Sensor{
	Heading: 1234, Pitch: -15, Roll: 27,
	PressureLSW: 10123, Temperature: 1550,
	Battery: 120, SoundSpeed: 15000,
}

func (b *FrameBuilder) sensor(t time.Time, s Sensor) *FrameBuilder {
	return b.Clock(4, t).
		U16(14, s.Battery).
		U16(16, s.SoundSpeed).
		I16(18, s.Heading).
		I16(20, s.Pitch).
		I16(22, s.Roll).
		U8(24, s.PressureMSB).
		U16(26, s.PressureLSW).
		I16(28, s.Temperature)
}

// HeadConfig builds a 0x04 frame. coord is 0 ENU, 1 XYZ, 2 BEAM or 3 unset.
func HeadConfig(coord uint16, beams uint16, serial string) []byte {
	return NewFrame(0x04, 112).
		U16(4, coord<<4).
		U16(6, 2000).
		U16(8, 1).
		Raw(10, []byte(serial)).
		U16(220, beams).
		Bytes()
}

// HardwareConfig builds a 0x05 frame.
func HardwareConfig(serial, firmware string) []byte {
	return NewFrame(0x05, 24).
		Raw(4, []byte(serial)).
		U16(20, 2000).
		U16(24, 4).
		Raw(42, []byte(firmware)).
		Bytes()
}

// UserConfig holds the user configuration values tests care about.
type UserConfig struct {
	Beams, Cells, Coord uint16
	CellSize            uint16
	MeasInterval        uint16
	Mode                uint16
	WaveSamples         uint16
	DeploymentName      string
	DeploymentStart     time.Time
}

// UserConfigFrame builds a 0x00 frame.
func UserConfigFrame(u UserConfig) []byte {
	b := NewFrame(0x00, 256).
		U16(16, 60).
		U16(18, u.Beams).
		U16(32, u.Coord).
		U16(34, u.Cells).
		U16(36, u.CellSize).
		U16(38, u.MeasInterval).
		Raw(40, []byte(u.DeploymentName)).
		U16(58, u.Mode).
		U16(446, u.WaveSamples)
	if !u.DeploymentStart.IsZero() {
		b.Clock(48, u.DeploymentStart)
	}
	return b.Bytes()
}

// AquadoppVelocity builds a 0x01 frame with DefaultSensor housekeeping.
func AquadoppVelocity(t time.Time, vel [3]int16, amp [3]uint8) []byte {
	b := NewFrame(0x01, 21).sensor(t, DefaultSensor)
	for i := 0; i < 3; i++ {
		b.I16(30+2*i, vel[i])
		b.U8(36+i, amp[i])
	}
	return b.Bytes()
}

// ProfilerWords returns the frame length of a profiler record.
func ProfilerWords(id byte, beams, cells int) int {
	n := profilerArrays(id) + beams*cells*3
	if n%2 == 1 {
		n++
	}
	return (n + 2) / 2
}

func profilerArrays(id byte) int {
	if id == 0x20 {
		return 118
	}
	return 30
}

// Profiler builds a 0x20 or 0x21 frame. vel and amp are indexed
// [beam][cell].
func Profiler(id byte, t time.Time, vel [][]int16, amp [][]uint8) []byte {
	beams, cells := len(vel), 0
	if beams > 0 {
		cells = len(vel[0])
	}
	b := NewFrame(id, ProfilerWords(id, beams, cells)).sensor(t, DefaultSensor)
	velOff := profilerArrays(id)
	ampOff := velOff + beams*cells*2
	for bm := 0; bm < beams; bm++ {
		for c := 0; c < cells; c++ {
			i := bm*cells + c
			b.I16(velOff+2*i, vel[bm][c])
			b.U8(ampOff+i, amp[bm][c])
		}
	}
	return b.Bytes()
}

// WaveHeader builds a 0x31 frame opening a burst of n samples.
func WaveHeader(t time.Time, n uint16) []byte {
	return NewFrame(0x31, 30).
		Clock(4, t).
		U16(10, n).
		U16(14, 120).
		U16(16, 15000).
		U16(24, 9000).
		U16(26, 11000).
		I16(28, 1550).
		Bytes()
}

// WaveSample builds a 0x30 frame. pressure is in 0.001 dbar.
func WaveSample(pressure uint16, vel [3]int16) []byte {
	b := NewFrame(0x30, 12).U16(4, pressure)
	for i := 0; i < 3; i++ {
		b.I16(10+2*i, vel[i])
	}
	for i := 0; i < 4; i++ {
		b.U8(18+i, 60+uint8(i))
	}
	return b.Bytes()
}

// VectorHeader builds a 0x12 frame opening a burst of n samples.
func VectorHeader(t time.Time, n uint16) []byte {
	return NewFrame(0x12, 21).Clock(4, t).U16(10, n).Bytes()
}

// VectorVelocity builds an unsized 0x10 frame.
func VectorVelocity(count uint8, pressure uint32, vel [3]int16) []byte {
	b := NewUnsizedFrame(0x10, 12).
		U8(3, count).
		U8(4, uint8(pressure>>16)).
		U16(6, uint16(pressure))
	for i := 0; i < 3; i++ {
		b.I16(10+2*i, vel[i])
		b.U8(16+i, 100)
		b.U8(19+i, 90)
	}
	return b.Bytes()
}

// VectorSystem builds a 0x11 frame.
func VectorSystem(t time.Time) []byte {
	return NewFrame(0x11, 14).
		Clock(4, t).
		U16(10, 120).
		U16(12, 15000).
		I16(14, 1234).
		I16(20, 1550).
		Bytes()
}

// Unknown builds a sized frame with a type id no decoder knows.
func Unknown(id byte, words int) []byte {
	return NewFrame(id, words).Bytes()
}
