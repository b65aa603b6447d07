package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ocean.telemetry/internal/fsutil"
)

func TestDefaultDecoderConfig(t *testing.T) {
	cfg := DefaultDecoderConfig()

	if cfg.MaxConsecutiveChecksumFailures == nil || *cfg.MaxConsecutiveChecksumFailures != 10 {
		t.Errorf("Expected MaxConsecutiveChecksumFailures 10, got %v", cfg.MaxConsecutiveChecksumFailures)
	}
	if cfg.WaveSampleInterval == nil || *cfg.WaveSampleInterval != "500ms" {
		t.Errorf("Expected WaveSampleInterval '500ms', got %v", cfg.WaveSampleInterval)
	}
	if cfg.VectorSampleRateHz == nil || *cfg.VectorSampleRateHz != 16 {
		t.Errorf("Expected VectorSampleRateHz 16, got %v", cfg.VectorSampleRateHz)
	}
	if cfg.GetVectorSampleInterval() != time.Second/16 {
		t.Errorf("GetVectorSampleInterval() = %v, want %v", cfg.GetVectorSampleInterval(), time.Second/16)
	}
	if cfg.GetSerial().BaudRate != 9600 {
		t.Errorf("GetSerial().BaudRate = %d, want 9600", cfg.GetSerial().BaudRate)
	}
	if cfg.GetWorkers() < 1 {
		t.Errorf("GetWorkers() = %d, want at least 1", cfg.GetWorkers())
	}
	require.NoError(t, cfg.Validate())
}

func TestEmptyDecoderConfig_Defaults(t *testing.T) {
	cfg := EmptyDecoderConfig()

	assert.Equal(t, 10, cfg.GetMaxConsecutiveChecksumFailures())
	assert.Equal(t, 500*time.Millisecond, cfg.GetWaveSampleInterval())
	assert.Equal(t, 16.0, cfg.GetVectorSampleRateHz())
	assert.Equal(t, 0.0, cfg.GetPressureOffsetDbar())
	assert.Equal(t, 0.0, cfg.GetVelocityScaleOverride())
	assert.Equal(t, "", cfg.GetStorePath())
	assert.Equal(t, "N", cfg.GetSerial().Parity)
}

func TestGetMaxConsecutiveChecksumFailures_Negative(t *testing.T) {
	n := -1
	cfg := &DecoderConfig{MaxConsecutiveChecksumFailures: &n}
	assert.Equal(t, -1, cfg.GetMaxConsecutiveChecksumFailures(), "negative disables the limit and is passed through")
}

func TestLoadDecoderConfig(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testJSON := `{
  "max_consecutive_checksum_failures": 3,
  "workers": 2,
  "wave_sample_interval": "250ms",
  "vector_sample_rate_hz": 32,
  "pressure_offset_dbar": -10.1,
  "velocity_scale_override": 0.0001,
  "serial": {"baud_rate": 115200},
  "store_path": "archive.db"
}`
	require.NoError(t, fsys.WriteFile("test_config.json", []byte(testJSON), 0644))

	cfg, err := LoadDecoderConfig(fsys, "test_config.json")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	assert.Equal(t, 3, cfg.GetMaxConsecutiveChecksumFailures())
	assert.Equal(t, 2, cfg.GetWorkers())
	assert.Equal(t, 250*time.Millisecond, cfg.GetWaveSampleInterval())
	assert.Equal(t, time.Second/32, cfg.GetVectorSampleInterval())
	assert.InDelta(t, -10.1, cfg.GetPressureOffsetDbar(), 1e-12)
	assert.InDelta(t, 0.0001, cfg.GetVelocityScaleOverride(), 1e-12)
	assert.Equal(t, "archive.db", cfg.GetStorePath())

	serial := cfg.GetSerial()
	assert.Equal(t, 115200, serial.BaudRate)
	assert.Equal(t, 8, serial.DataBits, "unset serial fields are normalized")
}

func TestLoadDecoderConfig_Partial(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("partial.json", []byte(`{"workers": 1}`), 0644))

	cfg, err := LoadDecoderConfig(fsys, "partial.json")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.GetWorkers())
	assert.Equal(t, 10, cfg.GetMaxConsecutiveChecksumFailures())
	assert.Nil(t, cfg.Serial)
}

func TestLoadDecoderConfig_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("bad.json", []byte(`{not json`), 0644))
	require.NoError(t, fsys.WriteFile("config.yaml", []byte(`workers: 1`), 0644))
	require.NoError(t, fsys.WriteFile("negative.json", []byte(`{"workers": -2}`), 0644))
	require.NoError(t, fsys.WriteFile("interval.json", []byte(`{"wave_sample_interval": "soon"}`), 0644))
	require.NoError(t, fsys.WriteFile("parity.json", []byte(`{"serial": {"parity": "X"}}`), 0644))
	require.NoError(t, fsys.WriteFile("big.json", []byte(`{"store_path": "`+strings.Repeat("a", 1<<20)+`"}`), 0644))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing", "nope.json", "failed to stat"},
		{"extension", "config.yaml", ".json extension"},
		{"malformed", "bad.json", "failed to parse"},
		{"negative workers", "negative.json", "workers must be non-negative"},
		{"bad interval", "interval.json", "wave_sample_interval"},
		{"bad parity", "parity.json", "unsupported parity"},
		{"too large", "big.json", "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDecoderConfig(fsys, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDecoderConfig_OSFileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "decoder.json")
	if err := os.WriteFile(configPath, []byte(`{"pressure_offset_dbar": 1.5}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadDecoderConfig(fsutil.OSFileSystem{}, configPath)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.GetPressureOffsetDbar())
}

// loadShippedDefaults loads DefaultConfigPath from the repository root.
func loadShippedDefaults(t *testing.T) *DecoderConfig {
	t.Helper()
	fsys := fsutil.OSFileSystem{}
	path := filepath.Join("..", "..", DefaultConfigPath)
	require.True(t, fsys.Exists(path), "missing %s", path)
	cfg, err := LoadDecoderConfig(fsys, path)
	require.NoError(t, err)
	return cfg
}

func TestShippedDefaults_MatchDefaults(t *testing.T) {
	cfg := loadShippedDefaults(t)
	def := DefaultDecoderConfig()

	assert.Equal(t, def.GetMaxConsecutiveChecksumFailures(), cfg.GetMaxConsecutiveChecksumFailures())
	assert.Equal(t, def.GetWaveSampleInterval(), cfg.GetWaveSampleInterval())
	assert.Equal(t, def.GetVectorSampleRateHz(), cfg.GetVectorSampleRateHz())
	assert.Equal(t, def.GetSerial(), cfg.GetSerial())
	assert.Equal(t, def.GetStorePath(), cfg.GetStorePath())
}
