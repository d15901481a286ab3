// Package synth implements [capture.Source] with a generated test signal:
// a slow amplitude envelope over a sine carrier plus a small noise floor.
// No audio hardware is touched, which makes it the backend of choice for
// demos, soak tests, and CI.
package synth

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/MrWong99/soundfield/pkg/capture"
	"github.com/MrWong99/soundfield/pkg/dsp"
)

const (
	sampleRate      = 48000
	framesPerBuffer = 512

	// carrierHz is the synthetic tone frequency.
	carrierHz = 440

	// envelopePeriod is one full swell-and-fade cycle.
	envelopePeriod = 4 * time.Second

	// noiseFloor keeps quiet stretches just above true silence.
	noiseFloor = 0.004
)

// Config holds the tunables for a synthetic source.
type Config struct {
	// Measure selects the per-buffer scalar. Defaults to [capture.MeasureRMS].
	Measure capture.Measure

	// Seed fixes the noise generator for reproducible runs. Zero seeds from
	// the current time.
	Seed int64
}

// Source generates readings at the cadence of a real 48 kHz device
// delivering 512-frame buffers. Create with [New].
type Source struct {
	pub *capture.Publisher
	cfg Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// New creates a source publishing through pub.
func New(pub *capture.Publisher, cfg Config) *Source {
	if cfg.Measure == "" {
		cfg.Measure = capture.MeasureRMS
	}
	return &Source{pub: pub, cfg: cfg}
}

// Start begins the generator goroutine. It cannot fail beyond a cancelled
// ctx or a double start.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("synth: source already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.generate(runCtx)
	return nil
}

func (s *Source) generate(ctx context.Context) {
	defer close(s.done)

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	secondsPerBuffer := float64(framesPerBuffer) / sampleRate
	bufDuration := time.Duration(secondsPerBuffer * float64(time.Second))
	ticker := time.NewTicker(bufDuration)
	defer ticker.Stop()

	buf := make([]float32, framesPerBuffer)
	var phase, elapsed float64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Envelope sweeps 0 → 1 → 0 over envelopePeriod.
		env := 0.5 * (1 - math.Cos(2*math.Pi*elapsed/envelopePeriod.Seconds()))
		for i := range buf {
			carrier := math.Sin(phase)
			noise := (rng.Float64()*2 - 1) * noiseFloor
			buf[i] = float32(env*0.3*carrier + noise)
			phase += 2 * math.Pi * carrierHz / sampleRate
		}
		elapsed += bufDuration.Seconds()

		rms, peak := dsp.FrameStats(buf, 1, dsp.DownmixFirst)
		if s.cfg.Measure == capture.MeasurePeak {
			s.pub.Publish(peak)
		} else {
			s.pub.Publish(rms)
		}
	}
}

// Info implements [capture.Source].
func (s *Source) Info() capture.StreamInfo {
	return capture.StreamInfo{
		Backend:    "synth",
		SampleRate: sampleRate,
		Channels:   1,
	}
}

// Close stops the generator. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}
