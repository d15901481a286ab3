// Package wavfile implements [capture.Source] by replaying a WAV file
// through the pipeline at the file's real-time rate. It exists so the
// visualizer can be exercised — and the pipeline soak-tested — without a
// microphone.
//
// The file is decoded buffer-by-buffer; each buffer yields one reading, the
// same cadence a live device callback would produce. When the file ends the
// replay loops.
package wavfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/MrWong99/soundfield/pkg/capture"
	"github.com/MrWong99/soundfield/pkg/dsp"
)

// defaultFramesPerBuffer is the per-read frame count when none is configured,
// roughly 10 ms at 48 kHz.
const defaultFramesPerBuffer = 512

// Config holds the tunables for a WAV replay source.
type Config struct {
	// Path is the WAV file to replay. Required.
	Path string

	// Measure selects the per-buffer scalar. Defaults to [capture.MeasureRMS].
	Measure capture.Measure

	// Downmix selects how multi-channel frames are reduced.
	// Defaults to [dsp.DownmixFirst].
	Downmix dsp.DownmixMode

	// FramesPerBuffer is the number of sample frames per reading.
	// Zero uses a ~10 ms buffer.
	FramesPerBuffer int

	// Pace overrides the delay between buffers. Zero paces at the file's
	// real-time rate; negative replays as fast as possible (tests).
	Pace time.Duration
}

// Source replays a WAV file. Create with [New].
type Source struct {
	pub *capture.Publisher
	cfg Config

	mu     sync.Mutex
	file   *os.File
	info   capture.StreamInfo
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// New creates a source publishing through pub. The file is not opened until
// [Source.Start].
func New(pub *capture.Publisher, cfg Config) *Source {
	if cfg.Measure == "" {
		cfg.Measure = capture.MeasureRMS
	}
	if cfg.Downmix == "" {
		cfg.Downmix = dsp.DownmixFirst
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = defaultFramesPerBuffer
	}
	return &Source{pub: pub, cfg: cfg}
}

// Start opens and validates the file, then begins the replay goroutine.
// A missing or malformed file maps to the same fatal error classes a live
// device would produce.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("wavfile: source already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()
		return fmt.Errorf("%w: %q is not a valid WAV file", capture.ErrStreamStart, s.cfg.Path)
	}
	if err := dec.FwdToPCM(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: seek to PCM: %v", capture.ErrStreamStart, err)
	}

	s.file = f
	s.info = capture.StreamInfo{
		Backend:    "wav",
		SampleRate: float64(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}

	// The replay goroutine owns the decoder; it stops on Close or ctx done.
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.replay(runCtx, dec)

	slog.Info("capture stream started",
		"backend", "wav",
		"path", s.cfg.Path,
		"sample_rate", dec.SampleRate,
		"channels", dec.NumChans,
	)
	return nil
}

// replay reads buffers, publishes one reading per buffer, and loops the file
// on EOF. Pacing approximates the buffer duration at the file's sample rate.
func (s *Source) replay(ctx context.Context, dec *wav.Decoder) {
	defer close(s.done)

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	norm := float32(int(1) << (dec.BitDepth - 1))
	if dec.BitDepth == 0 || norm <= 0 {
		norm = 1 << 15
	}

	pace := s.cfg.Pace
	if pace == 0 && dec.SampleRate > 0 {
		pace = time.Duration(float64(s.cfg.FramesPerBuffer) / float64(dec.SampleRate) * float64(time.Second))
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
		Data:   make([]int, s.cfg.FramesPerBuffer*channels),
	}
	samples := make([]float32, len(buf.Data))

	var ticker *time.Ticker
	if pace > 0 {
		ticker = time.NewTicker(pace)
		defer ticker.Stop()
	}

	emptyReads := 0
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := dec.PCMBuffer(buf)
		if n == 0 || err == io.EOF {
			// A file with no PCM frames would rewind forever.
			emptyReads++
			if emptyReads > 1 {
				slog.Warn("wav replay found no PCM frames, stopping", "path", s.cfg.Path)
				return
			}
			// Loop: rewind to the start of PCM data.
			if seekErr := dec.Rewind(); seekErr != nil {
				slog.Warn("wav replay rewind failed, stopping", "err", seekErr)
				return
			}
			continue
		}
		if err != nil {
			slog.Warn("wav replay read failed, stopping", "err", err)
			return
		}
		emptyReads = 0

		for i := range n {
			samples[i] = float32(buf.Data[i]) / norm
		}

		rms, peak := dsp.FrameStats(samples[:n], channels, s.cfg.Downmix)
		if s.cfg.Measure == capture.MeasurePeak {
			s.pub.Publish(peak)
		} else {
			s.pub.Publish(rms)
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return
		}
	}
}

// Info implements [capture.Source].
func (s *Source) Info() capture.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Close stops the replay goroutine and closes the file. Safe to call more
// than once.
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
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
