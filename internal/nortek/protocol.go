package nortek

import "sync"

// Frame-level protocol constants.
const (
	Sync byte   = 0xA5
	Seed uint16 = 0xB58C
)

// Layout of the sensor block shared by Aquadopp velocity, diagnostics and
// profiler records.
var sensorFields = []FieldSpec{
	{Name: "Clock", Kind: KindClock, Offset: 4},
	{Name: "Error", Kind: KindU16, Offset: 10},
	{Name: "AnaIn1", Kind: KindU16, Offset: 12},
	{Name: "Battery", Kind: KindU16, Offset: 14},
	{Name: "SoundSpeed", Kind: KindU16, Offset: 16},
	{Name: "Heading", Kind: KindI16, Offset: 18},
	{Name: "Pitch", Kind: KindI16, Offset: 20},
	{Name: "Roll", Kind: KindI16, Offset: 22},
	{Name: "PressureMSB", Kind: KindU8, Offset: 24},
	{Name: "Status", Kind: KindU8, Offset: 25},
	{Name: "PressureLSW", Kind: KindU16, Offset: 26},
	{Name: "Temperature", Kind: KindI16, Offset: 28},
}

func withSensor(rest ...FieldSpec) []FieldSpec {
	out := make([]FieldSpec, 0, len(sensorFields)+len(rest))
	out = append(out, sensorFields...)
	return append(out, rest...)
}

func descriptors() []*Descriptor {
	return []*Descriptor{
		{
			ID: IDUserConfiguration, Name: "User Configuration", Words: 256, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "T1", Kind: KindU16, Offset: 4},
				{Name: "T2", Kind: KindU16, Offset: 6},
				{Name: "T3", Kind: KindU16, Offset: 8},
				{Name: "T4", Kind: KindU16, Offset: 10},
				{Name: "T5", Kind: KindU16, Offset: 12},
				{Name: "NPings", Kind: KindU16, Offset: 14},
				{Name: "AvgInterval", Kind: KindU16, Offset: 16},
				{Name: "NBeams", Kind: KindU16, Offset: 18},
				{Name: "TimCtrlReg", Kind: KindU16, Offset: 20},
				{Name: "PwrCtrlReg", Kind: KindU16, Offset: 22},
				{Name: "A1", Kind: KindU16, Offset: 24},
				{Name: "B0", Kind: KindU16, Offset: 26},
				{Name: "B1", Kind: KindU16, Offset: 28},
				{Name: "CompassUpdRate", Kind: KindU16, Offset: 30},
				{Name: "CoordSystem", Kind: KindU16, Offset: 32},
				{Name: "NBins", Kind: KindU16, Offset: 34},
				{Name: "BinLength", Kind: KindU16, Offset: 36},
				{Name: "MeasInterval", Kind: KindU16, Offset: 38},
				{Name: "DeployName", Kind: KindText, Offset: 40, Count: 6},
				{Name: "WrapMode", Kind: KindU16, Offset: 46},
				{Name: "ClockDeploy", Kind: KindClock, Offset: 48},
				{Name: "DiagInterval", Kind: KindU32, Offset: 54},
				{Name: "Mode", Kind: KindU16, Offset: 58},
				{Name: "AdjSoundSpeed", Kind: KindU16, Offset: 60},
				{Name: "NSampDiag", Kind: KindU16, Offset: 62},
				{Name: "NBeamsCellDiag", Kind: KindU16, Offset: 64},
				{Name: "NPingsDiag", Kind: KindU16, Offset: 66},
				{Name: "ModeTest", Kind: KindU16, Offset: 68},
				{Name: "AnaInAddr", Kind: KindU16, Offset: 70},
				{Name: "SWVersion", Kind: KindU16, Offset: 72},
				{Name: "VelAdjTable", Kind: KindBytes, Offset: 76, Count: 180},
				{Name: "Comments", Kind: KindText, Offset: 256, Count: 180},
				{Name: "WMode", Kind: KindU16, Offset: 436},
				{Name: "DynPercPos", Kind: KindU16, Offset: 438},
				{Name: "WT1", Kind: KindU16, Offset: 440},
				{Name: "WT2", Kind: KindU16, Offset: 442},
				{Name: "WT3", Kind: KindU16, Offset: 444},
				{Name: "NSamp", Kind: KindU16, Offset: 446},
				{Name: "WA1", Kind: KindU16, Offset: 448},
				{Name: "WB0", Kind: KindU16, Offset: 450},
				{Name: "WB1", Kind: KindU16, Offset: 452},
				{Name: "AnaOutScale", Kind: KindU16, Offset: 456},
				{Name: "CorrThresh", Kind: KindU16, Offset: 458},
				{Name: "TiLag2", Kind: KindU16, Offset: 462},
				{Name: "QualConst", Kind: KindBytes, Offset: 494, Count: 16},
			},
			decode: decodeUserConfiguration,
		},
		{
			ID: IDAquadoppVelocity, Name: "Aquadopp Velocity Data", Words: 21, HasSizeField: true,
			Fields: withSensor(
				FieldSpec{Name: "Velocity", Kind: KindI16, Offset: 30, Count: 3},
				FieldSpec{Name: "Amplitude", Kind: KindU8, Offset: 36, Count: 3},
			),
			Needs:  NeedBeams | NeedCoord,
			decode: decodeAquadoppVelocity,
		},
		{
			ID: IDHeadConfiguration, Name: "Head Configuration", Words: 112, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "Config", Kind: KindU16, Offset: 4},
				{Name: "Frequency", Kind: KindU16, Offset: 6},
				{Name: "HeadType", Kind: KindU16, Offset: 8},
				{Name: "SerialNo", Kind: KindText, Offset: 10, Count: 12},
				{Name: "System", Kind: KindBytes, Offset: 22, Count: 176},
				{Name: "Spare", Kind: KindBytes, Offset: 198, Count: 22},
				{Name: "NBeams", Kind: KindU16, Offset: 220},
			},
			decode: decodeHeadConfiguration,
		},
		{
			ID: IDHardwareConfiguration, Name: "Hardware Configuration", Words: 24, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "SerialNo", Kind: KindText, Offset: 4, Count: 14},
				{Name: "Config", Kind: KindU16, Offset: 18},
				{Name: "Frequency", Kind: KindU16, Offset: 20},
				{Name: "PICVersion", Kind: KindU16, Offset: 22},
				{Name: "HWRevision", Kind: KindU16, Offset: 24},
				{Name: "RecSize", Kind: KindU16, Offset: 26},
				{Name: "Status", Kind: KindU16, Offset: 28},
				{Name: "Spare", Kind: KindBytes, Offset: 30, Count: 12},
				{Name: "FWVersion", Kind: KindText, Offset: 42, Count: 4},
			},
			decode: decodeHardwareConfiguration,
		},
		{
			ID: IDAquadoppDiagHeader, Name: "Aquadopp Diagnostics Data Header", Words: 18, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "Records", Kind: KindU16, Offset: 4},
				{Name: "Cell", Kind: KindU16, Offset: 6},
				{Name: "Noise", Kind: KindU8, Offset: 8, Count: 4},
				{Name: "ProcMagn", Kind: KindU16, Offset: 12, Count: 4},
				{Name: "Distance", Kind: KindU16, Offset: 20, Count: 4},
				{Name: "Spare", Kind: KindBytes, Offset: 28, Count: 6},
			},
			decode: decodeDiagnosticsHeader,
		},
		{
			ID: IDAquadoppDiagnostics, Name: "Aquadopp Diagnostics Data", Words: 21, HasSizeField: true,
			Fields: withSensor(
				FieldSpec{Name: "Velocity", Kind: KindI16, Offset: 30, Count: 3},
				FieldSpec{Name: "Amplitude", Kind: KindU8, Offset: 36, Count: 3},
			),
			Needs:  NeedBeams | NeedCoord,
			decode: decodeAquadoppVelocity,
		},
		{
			// Vector velocity frames carry no size field.
			ID: IDVectorVelocity, Name: "Vector Velocity Data", Words: 12, HasSizeField: false,
			Fields: []FieldSpec{
				{Name: "AnaIn2LSB", Kind: KindU8, Offset: 2},
				{Name: "Count", Kind: KindU8, Offset: 3},
				{Name: "PressureMSB", Kind: KindU8, Offset: 4},
				{Name: "AnaIn2MSB", Kind: KindU8, Offset: 5},
				{Name: "PressureLSW", Kind: KindU16, Offset: 6},
				{Name: "AnaIn1", Kind: KindU16, Offset: 8},
				{Name: "Velocity", Kind: KindI16, Offset: 10, Count: 3},
				{Name: "Amplitude", Kind: KindU8, Offset: 16, Count: 3},
				{Name: "Correlation", Kind: KindU8, Offset: 19, Count: 3},
			},
			Needs:  NeedCoord | NeedVectorBurst,
			decode: decodeVectorVelocity,
		},
		{
			ID: IDVectorSystem, Name: "Vector System Data", Words: 14, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "Clock", Kind: KindClock, Offset: 4},
				{Name: "Battery", Kind: KindU16, Offset: 10},
				{Name: "SoundSpeed", Kind: KindU16, Offset: 12},
				{Name: "Heading", Kind: KindI16, Offset: 14},
				{Name: "Pitch", Kind: KindI16, Offset: 16},
				{Name: "Roll", Kind: KindI16, Offset: 18},
				{Name: "Temperature", Kind: KindI16, Offset: 20},
				{Name: "Error", Kind: KindU8, Offset: 22},
				{Name: "Status", Kind: KindU8, Offset: 23},
				{Name: "AnaIn", Kind: KindU16, Offset: 24},
			},
			decode: decodeVectorSystem,
		},
		{
			ID: IDVectorVelocityHeader, Name: "Vector Velocity Data Header", Words: 21, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "Clock", Kind: KindClock, Offset: 4},
				{Name: "NRecords", Kind: KindU16, Offset: 10},
				{Name: "Noise", Kind: KindU8, Offset: 12, Count: 3},
				{Name: "Spare1", Kind: KindU8, Offset: 15},
				{Name: "Correlation", Kind: KindU8, Offset: 16, Count: 3},
				{Name: "Spare2", Kind: KindBytes, Offset: 19, Count: 21},
			},
			decode: decodeVectorHeader,
		},
		{
			ID: IDAWACVelocityProfile, Name: "AWAC Velocity Profile Data", HasSizeField: true,
			Fields: withSensor(
				FieldSpec{Name: "Spare", Kind: KindBytes, Offset: 30, Count: 88},
				FieldSpec{Name: "Velocity", Kind: KindI16, Offset: -1, Repeat: RepeatBeamsTimesCells},
				FieldSpec{Name: "Amplitude", Kind: KindU8, Offset: -1, Repeat: RepeatBeamsTimesCells},
			),
			Needs:  NeedBeams | NeedCells | NeedCoord,
			decode: decodeProfiler,
		},
		{
			ID: IDAquadoppProfiler, Name: "Aquadopp Profiler Velocity Data", HasSizeField: true,
			Fields: withSensor(
				FieldSpec{Name: "Velocity", Kind: KindI16, Offset: -1, Repeat: RepeatBeamsTimesCells},
				FieldSpec{Name: "Amplitude", Kind: KindU8, Offset: -1, Repeat: RepeatBeamsTimesCells},
			),
			Needs:  NeedBeams | NeedCells | NeedCoord,
			decode: decodeProfiler,
		},
		{
			ID: IDAWACWaveData, Name: "AWAC Wave Data", Words: 12, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "Pressure", Kind: KindU16, Offset: 4},
				{Name: "Distance1", Kind: KindU16, Offset: 6},
				{Name: "AnaIn", Kind: KindU16, Offset: 8},
				{Name: "Velocity", Kind: KindI16, Offset: 10, Count: 3},
				{Name: "Distance2", Kind: KindU16, Offset: 16},
				{Name: "Amplitude", Kind: KindU8, Offset: 18, Count: 4},
			},
			Needs:  NeedWaveBurst,
			decode: decodeWaveSample,
		},
		{
			ID: IDAWACWaveHeader, Name: "AWAC Wave Data Header", Words: 30, HasSizeField: true,
			Fields: []FieldSpec{
				{Name: "Clock", Kind: KindClock, Offset: 4},
				{Name: "NRecords", Kind: KindU16, Offset: 10},
				{Name: "Blanking", Kind: KindU16, Offset: 12},
				{Name: "Battery", Kind: KindU16, Offset: 14},
				{Name: "SoundSpeed", Kind: KindU16, Offset: 16},
				{Name: "Heading", Kind: KindI16, Offset: 18},
				{Name: "Pitch", Kind: KindI16, Offset: 20},
				{Name: "Roll", Kind: KindI16, Offset: 22},
				{Name: "MinPress", Kind: KindU16, Offset: 24},
				{Name: "MaxPress", Kind: KindU16, Offset: 26},
				{Name: "Temperature", Kind: KindI16, Offset: 28},
				{Name: "CellSize", Kind: KindU16, Offset: 30},
				{Name: "Noise", Kind: KindU8, Offset: 32, Count: 4},
				{Name: "ProcMagn", Kind: KindU16, Offset: 36, Count: 4},
				{Name: "Spare", Kind: KindBytes, Offset: 44, Count: 14},
			},
			decode: decodeWaveHeader,
		},
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(descriptors()...)
	if err != nil {
		panic(err)
	}
	return r
})

// DefaultRegistry returns the shared Nortek registry. It is read-only and safe
// for concurrent use.
func DefaultRegistry() *Registry { return defaultRegistry() }
