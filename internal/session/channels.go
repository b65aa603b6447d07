package session

import (
	"fmt"
	"time"

	"github.com/banshee-data/ocean.telemetry/internal/model"
	"github.com/banshee-data/ocean.telemetry/internal/nortek"
	"github.com/banshee-data/ocean.telemetry/internal/units"
)

// Channel names by coordinate system, indexed by beam or component.
var velocityNames = map[nortek.CoordSystem][4]string{
	nortek.CoordENU:  {"UCUR_MAG", "VCUR_MAG", "WCUR", "WCUR_2"},
	nortek.CoordXYZ:  {"VELX", "VELY", "VELZ", "VELZ2"},
	nortek.CoordBeam: {"VEL1", "VEL2", "VEL3", "VEL4"},
}

// Scalar channel names.
const (
	chHeading     = "HEADING_MAG"
	chPitch       = "PITCH"
	chRoll        = "ROLL"
	chPressure    = "PRES_REL"
	chTemperature = "TEMP"
	chSoundSpeed  = "SSPD"
	chBattery     = "VOLT"

	chWavePressure = "WAVE_PRES"

	diagPrefix = "DIAG_"
)

func velocityName(c nortek.CoordSystem, i int) string {
	names, ok := velocityNames[c]
	if !ok {
		return fmt.Sprintf("VEL%d", i+1)
	}
	return names[i]
}

func amplitudeName(i int) string   { return fmt.Sprintf("ABSIC%d", i+1) }
func correlationName(i int) string { return fmt.Sprintf("CMAG%d", i+1) }

// recorder appends decoded records to a model, creating channels on first
// use. Any error it returns is a schema conflict and ends the session.
type recorder struct {
	m *model.Model
}

func (r recorder) scalar(name, unit string, tb model.Timebase, t time.Time, v float64) error {
	h, err := r.m.EnsureChannel(model.ChannelSpec{Name: name, Type: model.Scalar, Unit: unit, Timebase: tb})
	if err != nil {
		return err
	}
	return r.m.AppendScalar(h, t, v)
}

func (r recorder) array(name, unit string, t time.Time, v []float64) error {
	h, err := r.m.EnsureChannel(model.ChannelSpec{Name: name, Type: model.Array(len(v)), Unit: unit, Timebase: model.TimebaseTime})
	if err != nil {
		return err
	}
	return r.m.Append(h, t, v)
}

func (r recorder) housekeeping(prefix string, t time.Time, h nortek.Housekeeping) error {
	rows := []struct {
		name, unit string
		v          float64
	}{
		{chHeading, units.Degree, h.Heading},
		{chPitch, units.Degree, h.Pitch},
		{chRoll, units.Degree, h.Roll},
		{chPressure, units.Decibar, h.Pressure},
		{chTemperature, units.DegreesCelsius, h.Temperature},
		{chSoundSpeed, units.MetresPerSecond, h.SoundSpeed},
		{chBattery, units.Volt, h.Battery},
	}
	for _, row := range rows {
		if err := r.scalar(prefix+row.name, row.unit, model.TimebaseTime, t, row.v); err != nil {
			return err
		}
	}
	return nil
}

// record maps one decoded record onto channels. Configuration and header
// records only carry context and attributes, so they add no rows.
func (r recorder) record(rec nortek.Record, st *nortek.StreamState) error {
	switch rec := rec.(type) {
	case nortek.AquadoppVelocity:
		return r.aquadopp(rec, st)
	case nortek.ProfilerVelocity:
		return r.profiler(rec)
	case nortek.WaveSample:
		return r.wave(rec)
	case nortek.VectorVelocity:
		return r.vector(rec)
	case nortek.VectorSystem:
		return r.vectorSystem(rec)
	}
	return nil
}

func (r recorder) aquadopp(rec nortek.AquadoppVelocity, st *nortek.StreamState) error {
	prefix := ""
	if rec.Diagnostic {
		prefix = diagPrefix
	}
	n := min(int(st.Beams.V), len(rec.Velocity))
	for i := 0; i < n; i++ {
		if err := r.scalar(prefix+velocityName(rec.Coord, i), units.MetresPerSecond, model.TimebaseTime, rec.Timestamp, rec.Velocity[i]); err != nil {
			return err
		}
		if err := r.scalar(prefix+amplitudeName(i), units.Counts, model.TimebaseTime, rec.Timestamp, float64(rec.Amplitude[i])); err != nil {
			return err
		}
	}
	return r.housekeeping(prefix, rec.Timestamp, rec.Housekeeping)
}

func (r recorder) profiler(rec nortek.ProfilerVelocity) error {
	for b := 0; b < rec.Beams; b++ {
		if err := r.array(velocityName(rec.Coord, b), units.MetresPerSecond, rec.Timestamp, rec.Velocity[b]); err != nil {
			return err
		}
		amp := make([]float64, rec.Cells)
		for c, v := range rec.Amplitude[b] {
			amp[c] = float64(v)
		}
		if err := r.array(amplitudeName(b), units.Counts, rec.Timestamp, amp); err != nil {
			return err
		}
	}
	return r.housekeeping("", rec.Timestamp, rec.Housekeeping)
}

// Wave bursts are reported along beams.
func (r recorder) wave(rec nortek.WaveSample) error {
	t := rec.Timestamp
	if err := r.scalar(chWavePressure, units.Decibar, model.TimebaseWave, t, rec.Pressure); err != nil {
		return err
	}
	for i, v := range rec.Velocity {
		if err := r.scalar(fmt.Sprintf("WAVE_VEL%d", i+1), units.MetresPerSecond, model.TimebaseWave, t, v); err != nil {
			return err
		}
	}
	for i, v := range rec.Amplitude {
		if err := r.scalar(fmt.Sprintf("WAVE_ABSIC%d", i+1), units.Counts, model.TimebaseWave, t, float64(v)); err != nil {
			return err
		}
	}
	if err := r.scalar("WAVE_DIST1", units.Counts, model.TimebaseWave, t, float64(rec.Distance1)); err != nil {
		return err
	}
	return r.scalar("WAVE_DIST2", units.Counts, model.TimebaseWave, t, float64(rec.Distance2))
}

func (r recorder) vector(rec nortek.VectorVelocity) error {
	t := rec.Timestamp
	for i := range rec.Velocity {
		if err := r.scalar(velocityName(rec.Coord, i), units.MetresPerSecond, model.TimebaseTime, t, rec.Velocity[i]); err != nil {
			return err
		}
		if err := r.scalar(amplitudeName(i), units.Counts, model.TimebaseTime, t, float64(rec.Amplitude[i])); err != nil {
			return err
		}
		if err := r.scalar(correlationName(i), units.Percent, model.TimebaseTime, t, float64(rec.Correlation[i])); err != nil {
			return err
		}
	}
	return r.scalar(chPressure, units.Decibar, model.TimebaseTime, t, rec.Pressure)
}

func (r recorder) vectorSystem(rec nortek.VectorSystem) error {
	t := rec.Timestamp
	rows := []struct {
		name, unit string
		v          float64
	}{
		{chHeading, units.Degree, rec.Heading},
		{chPitch, units.Degree, rec.Pitch},
		{chRoll, units.Degree, rec.Roll},
		{chTemperature, units.DegreesCelsius, rec.Temperature},
		{chSoundSpeed, units.MetresPerSecond, rec.SoundSpeed},
		{chBattery, units.Volt, rec.Battery},
	}
	for _, row := range rows {
		if err := r.scalar(row.name, row.unit, model.TimebaseTime, t, row.v); err != nil {
			return err
		}
	}
	return nil
}
