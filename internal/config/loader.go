package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// Values absent from the file keep their [Default] value.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] values and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Capture
	if cfg.Capture.Backend == "" {
		errs = append(errs, errors.New("capture.backend is required"))
	}
	if cfg.Capture.Measure != "" && !cfg.Capture.Measure.IsValid() {
		errs = append(errs, fmt.Errorf("capture.measure %q is invalid; valid values: rms, peak", cfg.Capture.Measure))
	}
	if cfg.Capture.Downmix != "" && !cfg.Capture.Downmix.IsValid() {
		errs = append(errs, fmt.Errorf("capture.downmix %q is invalid; valid values: first, average", cfg.Capture.Downmix))
	}
	if cfg.Capture.Buffer < 0 {
		errs = append(errs, fmt.Errorf("capture.buffer %d must not be negative", cfg.Capture.Buffer))
	}
	if cfg.Capture.FramesPerBuffer < 0 {
		errs = append(errs, fmt.Errorf("capture.frames_per_buffer %d must not be negative", cfg.Capture.FramesPerBuffer))
	}
	if cfg.Capture.Backend == "wav" && cfg.Capture.WAVPath == "" {
		errs = append(errs, errors.New("capture.wav_path is required when capture.backend is wav"))
	}
	if cfg.Capture.GateThreshold < 0 {
		slog.Warn("capture.gate_threshold is negative; the noise gate is disabled",
			"gate_threshold", cfg.Capture.GateThreshold,
		)
	}

	// Visualizer
	if cfg.Visualizer.Mode != "" && !cfg.Visualizer.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("visualizer.mode %q is invalid; valid values: waveform, field", cfg.Visualizer.Mode))
	}
	if cfg.Visualizer.Window <= 0 {
		errs = append(errs, fmt.Errorf("visualizer.window %d must be positive", cfg.Visualizer.Window))
	}
	if cfg.Visualizer.Precision < 0 {
		errs = append(errs, fmt.Errorf("visualizer.precision %d must not be negative", cfg.Visualizer.Precision))
	}
	if cfg.Visualizer.RefreshMS <= 0 {
		errs = append(errs, fmt.Errorf("visualizer.refresh_ms %d must be positive", cfg.Visualizer.RefreshMS))
	}

	// Cursor
	cur := cfg.Visualizer.Cursor
	if cur.MinX > cur.MaxX {
		errs = append(errs, fmt.Errorf("visualizer.cursor: min_x %.2f exceeds max_x %.2f", cur.MinX, cur.MaxX))
	}
	if cur.MinY > cur.MaxY {
		errs = append(errs, fmt.Errorf("visualizer.cursor: min_y %.2f exceeds max_y %.2f", cur.MinY, cur.MaxY))
	}
	if cur.Step < 0 {
		errs = append(errs, fmt.Errorf("visualizer.cursor.step %.3f must not be negative", cur.Step))
	}

	return errors.Join(errs...)
}
