package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/banshee-data/ocean.telemetry/internal/fsutil"
	"github.com/banshee-data/ocean.telemetry/internal/serialmux"
)

// DefaultConfigPath is the path to the canonical decoder defaults file.
const DefaultConfigPath = "config/decoder.defaults.json"

// DecoderConfig is the decoder configuration file. Every field is optional;
// the Get* methods supply defaults for fields left out.
type DecoderConfig struct {
	// Scanner params
	MaxConsecutiveChecksumFailures *int `json:"max_consecutive_checksum_failures,omitempty"`

	// Session params
	Workers            *int     `json:"workers,omitempty"`
	WaveSampleInterval *string  `json:"wave_sample_interval,omitempty"` // duration string like "500ms"
	VectorSampleRateHz *float64 `json:"vector_sample_rate_hz,omitempty"`

	// Calibration
	PressureOffsetDbar    *float64 `json:"pressure_offset_dbar,omitempty"`
	VelocityScaleOverride *float64 `json:"velocity_scale_override,omitempty"`

	// Live source
	Serial *serialmux.PortOptions `json:"serial,omitempty"`

	// Archive
	StorePath *string `json:"store_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyDecoderConfig returns a DecoderConfig with all fields set to nil.
func EmptyDecoderConfig() *DecoderConfig {
	return &DecoderConfig{}
}

// DefaultDecoderConfig returns a DecoderConfig with every field set to its
// default value.
func DefaultDecoderConfig() *DecoderConfig {
	empty := EmptyDecoderConfig()
	serial, _ := serialmux.PortOptions{}.Normalize()
	return &DecoderConfig{
		MaxConsecutiveChecksumFailures: ptrInt(empty.GetMaxConsecutiveChecksumFailures()),
		Workers:                        ptrInt(empty.GetWorkers()),
		WaveSampleInterval:             ptrString(empty.GetWaveSampleInterval().String()),
		VectorSampleRateHz:             ptrFloat64(empty.GetVectorSampleRateHz()),
		PressureOffsetDbar:             ptrFloat64(0),
		VelocityScaleOverride:          ptrFloat64(0),
		Serial:                         &serial,
		StorePath:                      ptrString(""),
	}
}

// LoadDecoderConfig loads a DecoderConfig from a JSON file.
// The file must have a .json extension and be under the max file size.
// Fields omitted from the JSON file fall back to defaults, so partial
// configs are safe.
func LoadDecoderConfig(fsys fsutil.FileSystem, path string) (*DecoderConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDecoderConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *DecoderConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.WaveSampleInterval != nil && *c.WaveSampleInterval != "" {
		d, err := time.ParseDuration(*c.WaveSampleInterval)
		if err != nil {
			return fmt.Errorf("invalid wave_sample_interval '%s': %w", *c.WaveSampleInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("wave_sample_interval must be positive, got %s", d)
		}
	}

	if c.VectorSampleRateHz != nil && *c.VectorSampleRateHz < 0 {
		return fmt.Errorf("vector_sample_rate_hz must be non-negative, got %f", *c.VectorSampleRateHz)
	}

	if c.VelocityScaleOverride != nil && *c.VelocityScaleOverride < 0 {
		return fmt.Errorf("velocity_scale_override must be non-negative, got %f", *c.VelocityScaleOverride)
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}

	return nil
}

// GetMaxConsecutiveChecksumFailures returns the scanner abort threshold.
// Zero means the default; a negative value disables the limit.
func (c *DecoderConfig) GetMaxConsecutiveChecksumFailures() int {
	if c.MaxConsecutiveChecksumFailures == nil || *c.MaxConsecutiveChecksumFailures == 0 {
		return 10
	}
	return *c.MaxConsecutiveChecksumFailures
}

// GetWorkers returns the number of files decoded concurrently.
func (c *DecoderConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetWaveSampleInterval parses and returns the wave sample interval.
func (c *DecoderConfig) GetWaveSampleInterval() time.Duration {
	if c.WaveSampleInterval == nil || *c.WaveSampleInterval == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.WaveSampleInterval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetVectorSampleRateHz returns the Vector sampling rate.
func (c *DecoderConfig) GetVectorSampleRateHz() float64 {
	if c.VectorSampleRateHz == nil || *c.VectorSampleRateHz <= 0 {
		return 16
	}
	return *c.VectorSampleRateHz
}

// GetVectorSampleInterval returns the time between Vector samples.
func (c *DecoderConfig) GetVectorSampleInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.GetVectorSampleRateHz())
}

// GetPressureOffsetDbar returns the offset added to every pressure.
func (c *DecoderConfig) GetPressureOffsetDbar() float64 {
	if c.PressureOffsetDbar == nil {
		return 0
	}
	return *c.PressureOffsetDbar
}

// GetVelocityScaleOverride returns the forced velocity scale, or 0 to use
// the scale announced by the instrument.
func (c *DecoderConfig) GetVelocityScaleOverride() float64 {
	if c.VelocityScaleOverride == nil {
		return 0
	}
	return *c.VelocityScaleOverride
}

// GetSerial returns the normalized serial options.
func (c *DecoderConfig) GetSerial() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.Serial != nil {
		opts = *c.Serial
	}
	n, err := opts.Normalize()
	if err != nil {
		n, _ = serialmux.PortOptions{}.Normalize()
	}
	return n
}

// GetStorePath returns the SQLite archive path, or "" for no archive.
func (c *DecoderConfig) GetStorePath() string {
	if c.StorePath == nil {
		return ""
	}
	return *c.StorePath
}
