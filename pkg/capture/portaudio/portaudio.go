// Package portaudio implements [capture.Source] over the system default
// input device using PortAudio.
//
// The device is opened with its own default configuration — sample rate and
// channel count come from the device, not the caller. The stream callback
// computes one reading per delivered buffer and hands it to the publisher;
// it holds no locks and performs no I/O, per the capture contract.
package portaudio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/MrWong99/soundfield/pkg/capture"
	"github.com/MrWong99/soundfield/pkg/dsp"
)

// Config holds the tunables for a PortAudio source.
type Config struct {
	// Measure selects the per-buffer scalar. Defaults to [capture.MeasureRMS].
	Measure capture.Measure

	// Downmix selects how multi-channel frames are reduced.
	// Defaults to [dsp.DownmixFirst].
	Downmix dsp.DownmixMode

	// FramesPerBuffer overrides the callback buffer size.
	// Zero lets PortAudio choose.
	FramesPerBuffer int
}

// Source captures from the default input device. Create with [New];
// one Source owns one stream.
type Source struct {
	pub *capture.Publisher
	cfg Config

	mu      sync.Mutex
	stream  *portaudio.Stream
	info    capture.StreamInfo
	started bool
	closed  bool
}

// New creates a source publishing through pub. The stream is not opened
// until [Source.Start].
func New(pub *capture.Publisher, cfg Config) *Source {
	if cfg.Measure == "" {
		cfg.Measure = capture.MeasureRMS
	}
	if cfg.Downmix == "" {
		cfg.Downmix = dsp.DownmixFirst
	}
	return &Source{pub: pub, cfg: cfg}
}

// Start initialises PortAudio, opens the default input device with its
// default configuration, and starts the stream. ctx governs the open attempt
// only.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("portaudio: source already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: initialize: %v", capture.ErrDeviceUnavailable, err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	if s.cfg.FramesPerBuffer > 0 {
		params.FramesPerBuffer = s.cfg.FramesPerBuffer
	}
	channels := params.Input.Channels

	// Interleaved float32 callback. Runs on the PortAudio thread; it must
	// complete quickly and never block.
	callback := func(in []float32) {
		rms, peak := dsp.FrameStats(in, channels, s.cfg.Downmix)
		if s.cfg.Measure == capture.MeasurePeak {
			s.pub.Publish(peak)
		} else {
			s.pub.Publish(rms)
		}
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: open: %v", capture.ErrStreamStart, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: start: %v", capture.ErrStreamStart, err)
	}

	s.stream = stream
	s.started = true
	s.info = capture.StreamInfo{
		Backend:    "portaudio",
		SampleRate: params.SampleRate,
		Channels:   channels,
	}
	slog.Info("capture stream started",
		"backend", "portaudio",
		"device", dev.Name,
		"sample_rate", params.SampleRate,
		"channels", channels,
	)
	return nil
}

// Info implements [capture.Source].
func (s *Source) Info() capture.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Close stops the stream and releases PortAudio. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.started {
		s.closed = true
		return nil
	}
	s.closed = true

	if err := s.stream.Stop(); err != nil {
		slog.Warn("portaudio stream stop", "err", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("portaudio: close stream: %w", err)
	}
	return portaudio.Terminate()
}
