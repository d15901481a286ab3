// Package config provides the configuration schema, loader, and capture
// backend registry for soundfield.
package config

import (
	"github.com/MrWong99/soundfield/pkg/capture"
	"github.com/MrWong99/soundfield/pkg/dsp"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Mode selects which aggregation policy and view the visualizer runs.
type Mode string

const (
	// ModeWaveform shows the sliding window of recent readings.
	ModeWaveform Mode = "waveform"

	// ModeField shows amplitude by sampled position.
	ModeField Mode = "field"
)

// IsValid reports whether m is a recognised visualizer mode.
func (m Mode) IsValid() bool {
	return m == ModeWaveform || m == ModeField
}

// Config is the root configuration structure for soundfield.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// [Default] supplies a runnable configuration when no file is present.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Capture    CaptureConfig    `yaml:"capture"`
	Visualizer VisualizerConfig `yaml:"visualizer"`
}

// ServerConfig holds logging and telemetry settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// LogFile redirects logs to a file. The interactive view owns the
	// terminal, so without a file logs are discarded while it runs.
	LogFile string `yaml:"log_file"`

	// TelemetryAddr is the TCP address serving /metrics, /healthz, and
	// /readyz (e.g., ":9090"). Empty disables the listener.
	TelemetryAddr string `yaml:"telemetry_addr"`
}

// CaptureConfig selects and tunes the capture backend.
type CaptureConfig struct {
	// Backend selects the registered capture backend
	// (e.g., "portaudio", "wav", "synth").
	Backend string `yaml:"backend"`

	// Measure selects the per-buffer scalar: "rms" or "peak".
	Measure capture.Measure `yaml:"measure"`

	// Downmix selects multi-channel reduction: "first" or "average".
	Downmix dsp.DownmixMode `yaml:"downmix"`

	// GateThreshold suppresses readings at or below this value.
	// Negative disables the gate.
	GateThreshold float64 `yaml:"gate_threshold"`

	// Buffer is the publish channel capacity between the capture callback
	// and the drain loop.
	Buffer int `yaml:"buffer"`

	// FramesPerBuffer overrides the device callback buffer size.
	// Zero lets the backend choose.
	FramesPerBuffer int `yaml:"frames_per_buffer"`

	// WAVPath is the file replayed by the "wav" backend. Ignored by others.
	WAVPath string `yaml:"wav_path"`
}

// VisualizerConfig tunes the aggregation side and the render cadence.
type VisualizerConfig struct {
	// Mode selects the aggregation policy.
	Mode Mode `yaml:"mode"`

	// Window is the sliding-window capacity in waveform mode.
	Window int `yaml:"window"`

	// Precision is the number of decimal digits positions are rounded to
	// before deduplication in field mode.
	Precision int `yaml:"precision"`

	// StartLocked starts field mode with ingestion gated, matching a mic
	// that has not been placed yet.
	StartLocked bool `yaml:"start_locked"`

	// RefreshMS is the drain-and-render tick interval in milliseconds.
	RefreshMS int `yaml:"refresh_ms"`

	// Cursor bounds the position coordinate.
	Cursor CursorConfig `yaml:"cursor"`
}

// CursorConfig bounds the movable position cursor.
type CursorConfig struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`

	// Step is the distance one key press moves the cursor.
	Step float64 `yaml:"step"`
}

// Bounds converts the cursor section into capture bounds.
func (c CursorConfig) Bounds() capture.Bounds {
	return capture.Bounds{MinX: c.MinX, MaxX: c.MaxX, MinY: c.MinY, MaxY: c.MaxY}
}

// Default returns the configuration used when no config file exists:
// the live microphone, RMS readings gated at 0.01, a 500-reading waveform
// window, and a 30 ms tick.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
		Capture: CaptureConfig{
			Backend:       "portaudio",
			Measure:       capture.MeasureRMS,
			Downmix:       dsp.DownmixFirst,
			GateThreshold: capture.DefaultGateThreshold,
			Buffer:        capture.DefaultBuffer,
		},
		Visualizer: VisualizerConfig{
			Mode:        ModeWaveform,
			Window:      500,
			Precision:   2,
			StartLocked: true,
			RefreshMS:   30,
			Cursor: CursorConfig{
				MinX: 0,
				MaxX: 100,
				MinY: -1,
				MaxY: 1,
				Step: 0.05,
			},
		},
	}
}
