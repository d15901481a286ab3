// Command soundfield captures live audio amplitude and renders it in the
// terminal, either as a rolling waveform or as a positional sample field.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrWong99/soundfield/internal/app"
	"github.com/MrWong99/soundfield/internal/config"
	"github.com/MrWong99/soundfield/internal/observe"
	"github.com/MrWong99/soundfield/internal/ui"
	"github.com/MrWong99/soundfield/pkg/capture"
	"github.com/MrWong99/soundfield/pkg/capture/portaudio"
	"github.com/MrWong99/soundfield/pkg/capture/synth"
	"github.com/MrWong99/soundfield/pkg/capture/wavfile"
)

// version is stamped by the build (-ldflags "-X main.version=...").
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults apply when empty)")
	headless := flag.Bool("headless", false, "run the capture pipeline without the interactive view")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "soundfield: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "soundfield: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))

	logger, closeLog, err := newLogger(cfg.Server, *headless, levelVar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "soundfield: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("soundfield starting",
		"config", *configPath,
		"backend", cfg.Capture.Backend,
		"mode", cfg.Visualizer.Mode,
		"telemetry_addr", cfg.Server.TelemetryAddr,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.WithServiceVersion(version))
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Backend registry ──────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinBackends(reg)

	application, err := app.New(cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload (only when a file is watched) ───────────────────────
	if *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			applyConfigChange(application, levelVar, old, new)
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer watcher.Stop()
		}
	}

	if *headless {
		printStartupSummary(cfg)
		slog.Info("pipeline running — press Ctrl+C to shut down")
		err = application.Run(ctx)
	} else {
		err = runInteractive(ctx, stop, application, cfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads the config file, or returns the defaults when no path was
// given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// runInteractive runs the pipeline alongside the Bubbletea view. The program
// exits when the user quits, a signal arrives, or the pipeline fails.
func runInteractive(ctx context.Context, stop context.CancelFunc, application *app.App, cfg *config.Config) error {
	refresh := time.Duration(cfg.Visualizer.RefreshMS) * time.Millisecond
	program := tea.NewProgram(ui.New(application, refresh), tea.WithAltScreen())

	runErr := make(chan error, 1)
	go func() {
		err := application.Run(ctx)
		runErr <- err
		if err != nil && !errors.Is(err, context.Canceled) {
			program.Quit()
		}
	}()

	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		stop()
		<-runErr
		return fmt.Errorf("interactive view: %w", err)
	}

	// The view is gone; wind down the pipeline and surface its error.
	stop()
	return <-runErr
}

// ── Backend wiring ────────────────────────────────────────────────────────────

// registerBuiltinBackends wires all built-in capture backends into reg.
func registerBuiltinBackends(reg *config.Registry) {
	reg.RegisterBackend("portaudio", func(pub *capture.Publisher, cfg config.CaptureConfig) (capture.Source, error) {
		return portaudio.New(pub, portaudio.Config{
			Measure:         cfg.Measure,
			Downmix:         cfg.Downmix,
			FramesPerBuffer: cfg.FramesPerBuffer,
		}), nil
	})

	reg.RegisterBackend("wav", func(pub *capture.Publisher, cfg config.CaptureConfig) (capture.Source, error) {
		if cfg.WAVPath == "" {
			return nil, errors.New("wav backend requires capture.wav_path")
		}
		return wavfile.New(pub, wavfile.Config{
			Path:            cfg.WAVPath,
			Measure:         cfg.Measure,
			Downmix:         cfg.Downmix,
			FramesPerBuffer: cfg.FramesPerBuffer,
		}), nil
	})

	reg.RegisterBackend("synth", func(pub *capture.Publisher, cfg config.CaptureConfig) (capture.Source, error) {
		return synth.New(pub, synth.Config{Measure: cfg.Measure}), nil
	})

	for _, name := range reg.Backends() {
		slog.Debug("registered backend", "name", name)
	}
}

// ── Config hot reload ─────────────────────────────────────────────────────────

// applyConfigChange pushes the hot-reloadable fields of a changed config into
// the running pipeline and flags everything else.
func applyConfigChange(application *app.App, levelVar *slog.LevelVar, old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged {
		levelVar.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.GateChanged {
		application.SetGate(d.NewGate)
		slog.Info("gate threshold changed", "gate", d.NewGate)
	}
	if d.RefreshChanged {
		application.SetRefresh(d.NewRefreshMS)
		slog.Info("refresh interval changed", "refresh_ms", d.NewRefreshMS)
	}
	if d.RestartRequired {
		slog.Warn("config change needs a restart to take effect")
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        soundfield — pipeline          ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Backend", cfg.Capture.Backend)
	printField("Measure", string(cfg.Capture.Measure))
	printField("Mode", string(cfg.Visualizer.Mode))
	printField("Gate", fmt.Sprintf("%g", cfg.Capture.GateThreshold))
	printField("Refresh", fmt.Sprintf("%d ms", cfg.Visualizer.RefreshMS))
	if cfg.Server.TelemetryAddr != "" {
		printField("Telemetry", cfg.Server.TelemetryAddr)
	} else {
		printField("Telemetry", "(disabled)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(name, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s : %-19s  ║\n", name, value)
}

// ── Logger ────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. Interactive runs log to the configured
// file (or nowhere) so log lines do not tear the terminal view apart; headless
// runs default to stderr.
func newLogger(cfg config.ServerConfig, headless bool, level *slog.LevelVar) (*slog.Logger, func(), error) {
	var (
		out      io.Writer
		closeLog = func() {}
	)

	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	case headless:
		out = os.Stderr
	default:
		out = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closeLog, nil
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
