package nortek

import "time"

// Record is a decoded frame. The concrete type identifies the variant.
type Record interface {
	TypeID() uint8
}

// Timed is implemented by records that carry a sample time.
type Timed interface {
	Record
	Time() time.Time
}

// Housekeeping holds the sensor block shared by velocity and system records.
type Housekeeping struct {
	Heading     float64 // degrees
	Pitch       float64 // degrees
	Roll        float64 // degrees
	Pressure    float64 // dbar
	Temperature float64 // degrees Celsius
	Battery     float64 // volts
	SoundSpeed  float64 // m/s
	Error       uint16
	Status      uint8
}

// AquadoppVelocity is a single-point Aquadopp sample (0x01) or a diagnostics
// sample (0x80) with the same layout.
type AquadoppVelocity struct {
	Timestamp time.Time
	Housekeeping
	AnaIn1      uint16
	Coord       CoordSystem
	RawVelocity [3]int16
	Velocity    [3]float64 // m/s
	Amplitude   [3]uint8
	Diagnostic  bool
}

func (r AquadoppVelocity) TypeID() uint8 {
	if r.Diagnostic {
		return IDAquadoppDiagnostics
	}
	return IDAquadoppVelocity
}
func (r AquadoppVelocity) Time() time.Time { return r.Timestamp }

// ProfilerVelocity is one profile from an Aquadopp Profiler (0x21) or AWAC
// (0x20). Velocity and Amplitude are indexed [beam][cell].
type ProfilerVelocity struct {
	ID        uint8
	Timestamp time.Time
	Housekeeping
	Coord     CoordSystem
	Beams     int
	Cells     int
	Velocity  [][]float64 // m/s
	Amplitude [][]uint8
}

func (r ProfilerVelocity) TypeID() uint8   { return r.ID }
func (r ProfilerVelocity) Time() time.Time { return r.Timestamp }

// HeadConfiguration describes the transducer head (0x04).
type HeadConfiguration struct {
	Config       uint16
	FrequencyKHz uint16
	HeadType     uint16
	Serial       string
	Beams        uint16
	Coord        Optional[CoordSystem]
}

func (HeadConfiguration) TypeID() uint8 { return IDHeadConfiguration }

// HardwareConfiguration describes the instrument electronics (0x05).
type HardwareConfiguration struct {
	Serial       string
	Config       uint16
	FrequencyKHz uint16
	PICVersion   uint16
	HWRevision   uint16
	RecorderSize uint16
	Status       uint16
	Firmware     string
}

func (HardwareConfiguration) TypeID() uint8 { return IDHardwareConfiguration }

// UserConfiguration holds the deployment setup (0x00).
type UserConfiguration struct {
	Beams           uint16
	Coord           CoordSystem
	Cells           uint16
	CellSize        uint16
	AvgInterval     uint16
	MeasInterval    uint16
	DeploymentName  string
	DeploymentStart time.Time
	Mode            uint16
	VelocityScale   float64
	WaveSamples     uint16
}

func (UserConfiguration) TypeID() uint8 { return IDUserConfiguration }

// AquadoppDiagnosticsHeader precedes a diagnostics burst (0x06).
type AquadoppDiagnosticsHeader struct {
	Records       uint16
	Cell          uint16
	Noise         [4]uint8
	ProcMagnitude [4]uint16
	Distance      [4]uint16
}

func (AquadoppDiagnosticsHeader) TypeID() uint8 { return IDAquadoppDiagHeader }

// WaveHeader opens an AWAC wave burst (0x31).
type WaveHeader struct {
	Timestamp   time.Time
	Records     uint16
	Blanking    uint16
	Battery     float64
	SoundSpeed  float64
	Heading     float64
	Pitch       float64
	Roll        float64
	MinPressure float64
	MaxPressure float64
	Temperature float64
	CellSize    uint16
}

func (WaveHeader) TypeID() uint8     { return IDAWACWaveHeader }
func (r WaveHeader) Time() time.Time { return r.Timestamp }

// WaveSample is one sample of an AWAC wave burst (0x30). Its time is derived
// from the burst header.
type WaveSample struct {
	Timestamp time.Time
	Index     int
	Pressure  float64 // dbar
	Distance1 uint16
	Distance2 uint16
	AnaIn     uint16
	Velocity  [3]float64 // m/s
	Amplitude [4]uint8
}

func (WaveSample) TypeID() uint8     { return IDAWACWaveData }
func (r WaveSample) Time() time.Time { return r.Timestamp }

// VectorVelocityHeader opens a Vector burst (0x12).
type VectorVelocityHeader struct {
	Timestamp   time.Time
	Records     uint16
	Noise       [3]uint8
	Correlation [3]uint8
}

func (VectorVelocityHeader) TypeID() uint8     { return IDVectorVelocityHeader }
func (r VectorVelocityHeader) Time() time.Time { return r.Timestamp }

// VectorVelocity is one Vector sample (0x10).
type VectorVelocity struct {
	Timestamp   time.Time
	Index       int
	Count       uint8
	Pressure    float64 // dbar
	AnaIn1      uint16
	AnaIn2      uint16
	Coord       CoordSystem
	Velocity    [3]float64 // m/s
	Amplitude   [3]uint8
	Correlation [3]uint8
}

func (VectorVelocity) TypeID() uint8     { return IDVectorVelocity }
func (r VectorVelocity) Time() time.Time { return r.Timestamp }

// VectorSystem is the Vector housekeeping record (0x11).
type VectorSystem struct {
	Timestamp   time.Time
	Battery     float64
	SoundSpeed  float64
	Heading     float64
	Pitch       float64
	Roll        float64
	Temperature float64
	Error       uint8
	Status      uint8
	AnaIn       uint16
}

func (VectorSystem) TypeID() uint8     { return IDVectorSystem }
func (r VectorSystem) Time() time.Time { return r.Timestamp }
