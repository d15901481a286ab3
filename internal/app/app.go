// Package app wires all soundfield subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects the
// capture pipeline, Run executes the drain loop and telemetry server, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSourceFactory, WithAggregator, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/soundfield/internal/config"
	"github.com/MrWong99/soundfield/internal/health"
	"github.com/MrWong99/soundfield/internal/observe"
	"github.com/MrWong99/soundfield/pkg/aggregate"
	"github.com/MrWong99/soundfield/pkg/capture"
)

// errCaptureNotRunning is reported by the readiness probe until the capture
// stream has started.
var errCaptureNotRunning = errors.New("capture stream not running")

// App owns the capture pipeline: cursor, publisher, capture source, and
// aggregator, plus the telemetry HTTP server. The interactive view talks to
// it through the exported controller methods ([App.MoveCursor],
// [App.ToggleLock], [App.Sample], [App.Snapshot], ...), all safe for
// concurrent use.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	cursor *capture.Cursor
	pub    *capture.Publisher
	source capture.Source

	agg   aggregate.Aggregator
	field *aggregate.Field // non-nil only in field mode

	stats *DrainStats

	// refreshMS drives the drain ticker; settable at runtime.
	refreshMS atomic.Int64

	streaming atomic.Bool

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once

	// sourceFactory overrides the registry lookup when set (tests).
	sourceFactory config.SourceFactory
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSourceFactory injects a capture source constructor instead of looking
// one up in the registry.
func WithSourceFactory(f config.SourceFactory) Option {
	return func(a *App) { a.sourceFactory = f }
}

// WithAggregator injects an aggregator instead of creating one from config.
func WithAggregator(agg aggregate.Aggregator) Option {
	return func(a *App) { a.agg = agg }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring the pipeline together: cursor from the
// visualizer bounds, publisher from the capture settings, aggregator from the
// visualizer mode, and the capture source from the backend registry. Use
// Option functions to inject test doubles for any stage.
func New(cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{
		cfg:   cfg,
		stats: NewDrainStats(0),
	}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.refreshMS.Store(int64(cfg.Visualizer.RefreshMS))

	a.cursor = capture.NewCursor(cfg.Visualizer.Cursor.Bounds(), cfg.Visualizer.Cursor.Step)
	a.pub = capture.NewPublisher(cfg.Capture.Buffer, cfg.Capture.GateThreshold, a.cursor)

	if a.agg == nil {
		switch cfg.Visualizer.Mode {
		case config.ModeField:
			f := aggregate.NewField(cfg.Visualizer.Precision, cfg.Visualizer.StartLocked)
			a.field = f
			a.agg = f
		default:
			a.agg = aggregate.NewWindow(cfg.Visualizer.Window)
		}
	} else if f, ok := a.agg.(*aggregate.Field); ok {
		a.field = f
	}

	factory := a.sourceFactory
	if factory == nil {
		factory = reg.CreateSource
	}
	src, err := factory(a.pub, cfg.Capture)
	if err != nil {
		return nil, fmt.Errorf("app: create capture source: %w", err)
	}
	a.source = src

	return a, nil
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the capture stream, the drain loop, and (when configured) the
// telemetry HTTP server, then blocks until ctx is cancelled or a subsystem
// fails. When ctx is done, Run returns context.Canceled (or the underlying
// cause).
func (a *App) Run(ctx context.Context) error {
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("app: start capture: %w", err)
	}
	a.streaming.Store(true)
	a.closers = append(a.closers, a.source.Close)

	info := a.source.Info()
	slog.Info("capture started",
		"backend", info.Backend,
		"sample_rate", info.SampleRate,
		"channels", info.Channels,
		"mode", a.cfg.Visualizer.Mode,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.drainLoop(ctx) })
	if a.cfg.Server.TelemetryAddr != "" {
		g.Go(func() error { return a.serveTelemetry(ctx) })
	}

	err := g.Wait()
	a.streaming.Store(false)
	return err
}

// drainLoop moves readings from the publish channel into the aggregator once
// per refresh tick and feeds the drain and publisher metrics.
func (a *App) drainLoop(ctx context.Context) error {
	interval := time.Duration(a.refreshMS.Load()) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	backend := a.source.Info().Backend
	var prev capture.PublisherStats

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			n := aggregate.Drain(a.pub.Readings(), a.agg)
			elapsed := time.Since(start)

			a.stats.RecordDrain(n, elapsed)
			a.metrics.RecordDrain(ctx, n, elapsed.Seconds())

			cur := a.pub.Stats()
			a.metrics.RecordPublisherDelta(ctx, backend,
				cur.Published-prev.Published,
				cur.Gated-prev.Gated,
				cur.Dropped-prev.Dropped,
			)
			prev = cur

			if next := time.Duration(a.refreshMS.Load()) * time.Millisecond; next != interval && next > 0 {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// serveTelemetry runs the HTTP server exposing /metrics, /healthz, and
// /readyz until ctx is cancelled.
func (a *App) serveTelemetry(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(health.Probe{
		Name:  "capture",
		Ready: a.Streaming,
		Cause: errCaptureNotRunning,
	}).Register(mux)

	srv := &http.Server{
		Addr:              a.cfg.Server.TelemetryAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("telemetry server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry server shutdown error", "err", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: telemetry server: %w", err)
	}
}

// ─── Controller ──────────────────────────────────────────────────────────────

// Mode returns the configured visualizer mode.
func (a *App) Mode() config.Mode {
	if a.field != nil {
		return config.ModeField
	}
	return config.ModeWaveform
}

// Streaming reports whether the capture stream is currently running.
func (a *App) Streaming() bool {
	return a.streaming.Load()
}

// CursorPos returns the current sample position.
func (a *App) CursorPos() capture.Position {
	return a.cursor.Get()
}

// MoveCursor shifts the sample position by (dx, dy) steps, clamped to the
// configured bounds, and returns the new position.
func (a *App) MoveCursor(dx, dy float64) capture.Position {
	return a.cursor.Move(dx, dy)
}

// ToggleLock flips the field ingestion lock and returns the new state.
// In waveform mode it is a no-op that reports false.
func (a *App) ToggleLock() bool {
	if a.field == nil {
		return false
	}
	locked := !a.field.Locked()
	a.field.SetLocked(locked)
	return locked
}

// Locked reports whether field ingestion is currently gated. Always false in
// waveform mode.
func (a *App) Locked() bool {
	if a.field == nil {
		return false
	}
	return a.field.Locked()
}

// Sample captures the most recent reading regardless of gate or lock state
// and ingests it. This is the manual trigger: one deliberate measurement at
// the current cursor position. Reports false when no reading has been
// captured yet.
func (a *App) Sample() (capture.Reading, bool) {
	r, ok := a.pub.Last()
	if !ok {
		return capture.Reading{}, false
	}
	r.Position = a.cursor.Get()
	if a.field != nil {
		a.field.ForceIngest(r)
	} else {
		a.agg.Ingest(r)
	}
	a.metrics.ManualSamples.Add(context.Background(), 1)
	return r, true
}

// Reset discards all aggregated records. The lock state is unaffected.
func (a *App) Reset() {
	a.agg.Reset()
}

// Snapshot returns the aggregator's current records, ready for plotting.
func (a *App) Snapshot() []aggregate.Record {
	snap := a.agg.Snapshot()
	a.metrics.RecordSnapshot(context.Background(), string(a.Mode()), len(snap))
	return snap
}

// LastReading returns the most recent reading offered by the capture
// backend, including gated ones. Used for the live level readout.
func (a *App) LastReading() (capture.Reading, bool) {
	return a.pub.Last()
}

// SetGate replaces the silence gate threshold at runtime.
func (a *App) SetGate(gate float64) {
	a.pub.SetGate(gate)
}

// SetRefresh replaces the drain interval at runtime. The new interval takes
// effect after the next tick; non-positive values are ignored.
func (a *App) SetRefresh(ms int) {
	if ms > 0 {
		a.refreshMS.Store(int64(ms))
	}
}

// PublisherStats returns the capture-side counters.
func (a *App) PublisherStats() capture.PublisherStats {
	return a.pub.Stats()
}

// Stats returns drain-loop statistics for the dashboard footer.
func (a *App) Stats() DrainSnapshot {
	return a.stats.Snapshot()
}

// StreamInfo describes the running capture stream.
func (a *App) StreamInfo() capture.StreamInfo {
	return a.source.Info()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
