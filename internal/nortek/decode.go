package nortek

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/banshee-data/ocean.telemetry/internal/telemetry/frame"
)

type decodeFunc func(d *Descriptor, f fields, st *StreamState) (Record, Delta, error)

// fields reads named values out of a frame whose length matches its layout.
type fields struct {
	raw []byte
	l   *Layout
}

func (f fields) off(name string, i int) int {
	fd, ok := f.l.byName[name]
	if !ok {
		panic(fmt.Sprintf("nortek: layout has no field %q", name))
	}
	return fd.Offset + i*fd.Kind.size()
}

func (f fields) count(name string) int  { return f.l.byName[name].Count }
func (f fields) u8(name string) uint8   { return f.u8At(name, 0) }
func (f fields) u16(name string) uint16 { return f.u16At(name, 0) }
func (f fields) i16(name string) int16  { return f.i16At(name, 0) }
func (f fields) u8At(name string, i int) uint8 {
	return f.raw[f.off(name, i)]
}
func (f fields) u16At(name string, i int) uint16 {
	return binary.LittleEndian.Uint16(f.raw[f.off(name, i):])
}
func (f fields) i16At(name string, i int) int16 { return int16(f.u16At(name, i)) }
func (f fields) u32(name string) uint32 {
	return binary.LittleEndian.Uint32(f.raw[f.off(name, 0):])
}

func (f fields) clock(name string) (time.Time, error) {
	o := f.off(name, 0)
	return DecodeClock(f.raw[o : o+clockLen])
}

func (f fields) text(name string) string {
	o := f.off(name, 0)
	return CleanText(f.raw[o : o+f.count(name)])
}

// Decode decodes a checksum-validated frame under the stream context st. It
// never modifies st; the context change implied by the record is returned as
// a Delta for the caller to apply.
func (r *Registry) Decode(fr frame.Frame, st *StreamState) (Record, Delta, error) {
	d, err := r.Lookup(fr.TypeID)
	if err != nil {
		return nil, Delta{}, err
	}
	if err := checkNeeds(d, st); err != nil {
		return nil, Delta{}, err
	}
	l, err := r.ResolveLayout(d, st)
	if err != nil {
		return nil, Delta{}, err
	}
	if len(fr.Raw) != l.Bytes {
		return nil, Delta{}, fmt.Errorf("%w: %s frame is %d bytes, layout needs %d",
			ErrLayoutMismatch, d.Name, len(fr.Raw), l.Bytes)
	}
	if d.decode == nil {
		return nil, Delta{}, fmt.Errorf("%w: 0x%02X has no decoder", ErrUnknownRecordType, d.ID)
	}
	return d.decode(d, fields{raw: fr.Raw, l: &l}, st)
}

// Sensor scaling. Angles are 0.1 degree, battery and sound speed 0.1 V and
// 0.1 m/s, temperature 0.01 degree C, pressure 0.001 dbar.
func tenth(v float64) float64      { return v * 0.1 }
func hundredth(v float64) float64  { return v * 0.01 }
func thousandth(v float64) float64 { return v * 0.001 }

func pressure(msb uint8, lsw uint16) float64 {
	return thousandth(float64(uint32(msb)<<16 | uint32(lsw)))
}

func housekeeping(f fields, st *StreamState) Housekeeping {
	return Housekeeping{
		Heading:     tenth(float64(f.i16("Heading"))),
		Pitch:       tenth(float64(f.i16("Pitch"))),
		Roll:        tenth(float64(f.i16("Roll"))),
		Pressure:    st.cal(CalPressure).Apply(pressure(f.u8("PressureMSB"), f.u16("PressureLSW"))),
		Temperature: hundredth(float64(f.i16("Temperature"))),
		Battery:     tenth(float64(f.u16("Battery"))),
		SoundSpeed:  tenth(float64(f.u16("SoundSpeed"))),
		Error:       f.u16("Error"),
		Status:      f.u8("Status"),
	}
}

func decodeAquadoppVelocity(d *Descriptor, f fields, st *StreamState) (Record, Delta, error) {
	ts, err := f.clock("Clock")
	if err != nil {
		return nil, Delta{}, err
	}
	vel := st.cal(CalVelocity)
	rec := AquadoppVelocity{
		Timestamp:    ts,
		Housekeeping: housekeeping(f, st),
		AnaIn1:       f.u16("AnaIn1"),
		Coord:        st.Coord.V,
		Diagnostic:   d.ID == IDAquadoppDiagnostics,
	}
	for i := 0; i < 3; i++ {
		raw := f.i16At("Velocity", i)
		rec.RawVelocity[i] = raw
		rec.Velocity[i] = vel.Apply(float64(raw))
		rec.Amplitude[i] = f.u8At("Amplitude", i)
	}
	return rec, Delta{}, nil
}

func decodeProfiler(d *Descriptor, f fields, st *StreamState) (Record, Delta, error) {
	ts, err := f.clock("Clock")
	if err != nil {
		return nil, Delta{}, err
	}
	beams, cells := int(st.Beams.V), int(st.Cells.V)
	vel := st.cal(CalVelocity)
	rec := ProfilerVelocity{
		ID:           d.ID,
		Timestamp:    ts,
		Housekeeping: housekeeping(f, st),
		Coord:        st.Coord.V,
		Beams:        beams,
		Cells:        cells,
		Velocity:     make([][]float64, beams),
		Amplitude:    make([][]uint8, beams),
	}
	for b := 0; b < beams; b++ {
		rec.Velocity[b] = make([]float64, cells)
		rec.Amplitude[b] = make([]uint8, cells)
		for c := 0; c < cells; c++ {
			i := b*cells + c
			rec.Velocity[b][c] = vel.Apply(float64(f.i16At("Velocity", i)))
			rec.Amplitude[b][c] = f.u8At("Amplitude", i)
		}
	}
	return rec, Delta{}, nil
}

func decodeHeadConfiguration(_ *Descriptor, f fields, _ *StreamState) (Record, Delta, error) {
	cfg := f.u16("Config")
	rec := HeadConfiguration{
		Config:       cfg,
		FrequencyKHz: f.u16("Frequency"),
		HeadType:     f.u16("HeadType"),
		Serial:       f.text("SerialNo"),
		Beams:        f.u16("NBeams"),
	}
	var delta Delta
	// Bits 4-5 of the head config carry the coordinate frame; 3 means unset.
	if c, ok := coordFromRaw((cfg >> 4) & 0x3); ok {
		rec.Coord = Some(c)
		delta.Coord = rec.Coord
	}
	if rec.Beams >= 1 && rec.Beams <= 4 {
		delta.Beams = Some(uint8(rec.Beams))
	}
	delta.Attributes = map[string]string{
		"head_serial":        rec.Serial,
		"head_frequency_khz": strconv.Itoa(int(rec.FrequencyKHz)),
		"head_type":          strconv.Itoa(int(rec.HeadType)),
	}
	return rec, delta, nil
}

func decodeHardwareConfiguration(_ *Descriptor, f fields, _ *StreamState) (Record, Delta, error) {
	rec := HardwareConfiguration{
		Serial:       f.text("SerialNo"),
		Config:       f.u16("Config"),
		FrequencyKHz: f.u16("Frequency"),
		PICVersion:   f.u16("PICVersion"),
		HWRevision:   f.u16("HWRevision"),
		RecorderSize: f.u16("RecSize"),
		Status:       f.u16("Status"),
		Firmware:     f.text("FWVersion"),
	}
	delta := Delta{Attributes: map[string]string{
		"instrument_serial": rec.Serial,
		"firmware_version":  rec.Firmware,
		"hardware_revision": strconv.Itoa(int(rec.HWRevision)),
	}}
	return rec, delta, nil
}

// User configuration Mode bit 4 selects 0.1 mm/s velocity resolution.
const modeHighResolution = 1 << 4

func decodeUserConfiguration(_ *Descriptor, f fields, _ *StreamState) (Record, Delta, error) {
	rec := UserConfiguration{
		Beams:          f.u16("NBeams"),
		Cells:          f.u16("NBins"),
		CellSize:       f.u16("BinLength"),
		AvgInterval:    f.u16("AvgInterval"),
		MeasInterval:   f.u16("MeasInterval"),
		DeploymentName: f.text("DeployName"),
		Mode:           f.u16("Mode"),
		WaveSamples:    f.u16("NSamp"),
		VelocityScale:  0.001,
	}
	if rec.Mode&modeHighResolution != 0 {
		rec.VelocityScale = 0.0001
	}
	// Unprogrammed configurations carry an all-zero deployment clock.
	if ts, err := f.clock("ClockDeploy"); err == nil {
		rec.DeploymentStart = ts
	}

	var delta Delta
	if c, ok := coordFromRaw(f.u16("CoordSystem")); ok {
		rec.Coord = c
		delta.Coord = Some(c)
	}
	if rec.Beams >= 1 && rec.Beams <= 4 {
		delta.Beams = Some(uint8(rec.Beams))
	}
	if rec.Cells >= 1 {
		delta.Cells = Some(rec.Cells)
	}
	delta.Calibration = map[string]Calibration{CalVelocity: {Scale: rec.VelocityScale}}
	delta.Attributes = map[string]string{
		"deployment_name":  rec.DeploymentName,
		"cell_size":        strconv.Itoa(int(rec.CellSize)),
		"avg_interval_s":   strconv.Itoa(int(rec.AvgInterval)),
		"meas_interval_s":  strconv.Itoa(int(rec.MeasInterval)),
		"software_version": strconv.Itoa(int(f.u16("SWVersion"))),
		"diag_interval_s":  strconv.FormatUint(uint64(f.u32("DiagInterval")), 10),
	}
	if !rec.DeploymentStart.IsZero() {
		delta.Attributes["deployment_start"] = rec.DeploymentStart.Format(time.RFC3339)
	}
	return rec, delta, nil
}

func decodeDiagnosticsHeader(_ *Descriptor, f fields, _ *StreamState) (Record, Delta, error) {
	rec := AquadoppDiagnosticsHeader{
		Records: f.u16("Records"),
		Cell:    f.u16("Cell"),
	}
	for i := 0; i < 4; i++ {
		rec.Noise[i] = f.u8At("Noise", i)
		rec.ProcMagnitude[i] = f.u16At("ProcMagn", i)
		rec.Distance[i] = f.u16At("Distance", i)
	}
	return rec, Delta{}, nil
}

func decodeWaveHeader(_ *Descriptor, f fields, st *StreamState) (Record, Delta, error) {
	ts, err := f.clock("Clock")
	if err != nil {
		return nil, Delta{}, err
	}
	rec := WaveHeader{
		Timestamp:   ts,
		Records:     f.u16("NRecords"),
		Blanking:    f.u16("Blanking"),
		Battery:     tenth(float64(f.u16("Battery"))),
		SoundSpeed:  tenth(float64(f.u16("SoundSpeed"))),
		Heading:     tenth(float64(f.i16("Heading"))),
		Pitch:       tenth(float64(f.i16("Pitch"))),
		Roll:        tenth(float64(f.i16("Roll"))),
		MinPressure: st.cal(CalPressure).Apply(thousandth(float64(f.u16("MinPress")))),
		MaxPressure: st.cal(CalPressure).Apply(thousandth(float64(f.u16("MaxPress")))),
		Temperature: hundredth(float64(f.i16("Temperature"))),
		CellSize:    f.u16("CellSize"),
	}
	delta := Delta{OpenWaveBurst: Some(Burst{
		Start:    ts,
		Records:  int(rec.Records),
		Interval: st.WaveInterval,
	})}
	return rec, delta, nil
}

func decodeWaveSample(_ *Descriptor, f fields, st *StreamState) (Record, Delta, error) {
	burst := st.WaveBurst.V
	vel := st.cal(CalVelocity)
	rec := WaveSample{
		Timestamp: burst.SampleTime(burst.Next),
		Index:     burst.Next,
		Pressure:  st.cal(CalPressure).Apply(thousandth(float64(f.u16("Pressure")))),
		Distance1: f.u16("Distance1"),
		Distance2: f.u16("Distance2"),
		AnaIn:     f.u16("AnaIn"),
	}
	for i := 0; i < 3; i++ {
		rec.Velocity[i] = vel.Apply(float64(f.i16At("Velocity", i)))
	}
	for i := 0; i < 4; i++ {
		rec.Amplitude[i] = f.u8At("Amplitude", i)
	}
	return rec, Delta{AdvanceWave: true}, nil
}

func decodeVectorHeader(_ *Descriptor, f fields, st *StreamState) (Record, Delta, error) {
	ts, err := f.clock("Clock")
	if err != nil {
		return nil, Delta{}, err
	}
	rec := VectorVelocityHeader{
		Timestamp: ts,
		Records:   f.u16("NRecords"),
	}
	for i := 0; i < 3; i++ {
		rec.Noise[i] = f.u8At("Noise", i)
		rec.Correlation[i] = f.u8At("Correlation", i)
	}
	delta := Delta{OpenVectorBurst: Some(Burst{
		Start:    ts,
		Records:  int(rec.Records),
		Interval: st.VectorInterval,
	})}
	return rec, delta, nil
}

func decodeVectorVelocity(_ *Descriptor, f fields, st *StreamState) (Record, Delta, error) {
	burst := st.VectorBurst.V
	vel := st.cal(CalVelocity)
	rec := VectorVelocity{
		Timestamp: burst.SampleTime(burst.Next),
		Index:     burst.Next,
		Count:     f.u8("Count"),
		Pressure:  st.cal(CalPressure).Apply(pressure(f.u8("PressureMSB"), f.u16("PressureLSW"))),
		AnaIn1:    f.u16("AnaIn1"),
		AnaIn2:    uint16(f.u8("AnaIn2MSB"))<<8 | uint16(f.u8("AnaIn2LSB")),
		Coord:     st.Coord.V,
	}
	for i := 0; i < 3; i++ {
		rec.Velocity[i] = vel.Apply(float64(f.i16At("Velocity", i)))
		rec.Amplitude[i] = f.u8At("Amplitude", i)
		rec.Correlation[i] = f.u8At("Correlation", i)
	}
	return rec, Delta{AdvanceVector: true}, nil
}

func decodeVectorSystem(_ *Descriptor, f fields, _ *StreamState) (Record, Delta, error) {
	ts, err := f.clock("Clock")
	if err != nil {
		return nil, Delta{}, err
	}
	rec := VectorSystem{
		Timestamp:   ts,
		Battery:     tenth(float64(f.u16("Battery"))),
		SoundSpeed:  tenth(float64(f.u16("SoundSpeed"))),
		Heading:     tenth(float64(f.i16("Heading"))),
		Pitch:       tenth(float64(f.i16("Pitch"))),
		Roll:        tenth(float64(f.i16("Roll"))),
		Temperature: hundredth(float64(f.i16("Temperature"))),
		Error:       f.u8("Error"),
		Status:      f.u8("Status"),
		AnaIn:       f.u16("AnaIn"),
	}
	return rec, Delta{}, nil
}
