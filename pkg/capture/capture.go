// Package capture defines the types and contracts for the audio-capture half
// of the soundfield pipeline.
//
// The two primary abstractions are:
//
//   - [Source] — an open input stream whose device callback computes one
//     scalar [Reading] per delivered buffer and publishes it.
//   - [Publisher] — the bounded, drop-on-full channel between the device
//     callback thread and the render loop, with the silence gate and the
//     position [Cursor] applied at publish time.
//
// Backend subpackages (capture/portaudio, capture/wavfile, capture/synth)
// implement [Source] over a concrete audio subsystem. The interfaces are
// intentionally narrow so the aggregation side never learns which backend is
// feeding it.
//
// This package lives under pkg/ because external consumers are expected to
// implement [Source] for additional audio backends.
package capture

import (
	"context"
	"time"
)

// Measure selects which scalar summary a backend computes per buffer.
type Measure string

const (
	// MeasureRMS computes sqrt(mean(sample^2)) over the buffer.
	MeasureRMS Measure = "rms"

	// MeasurePeak computes the largest absolute sample value in the buffer.
	MeasurePeak Measure = "peak"
)

// IsValid reports whether m is a recognised measure.
func (m Measure) IsValid() bool {
	return m == MeasureRMS || m == MeasurePeak
}

// Position is the consumer-supplied coordinate attached to a reading. It is
// never derived from the audio signal. The 2D slider variant uses X only
// (Y stays 0); the field-sampling variant uses both axes.
type Position struct {
	X float64
	Y float64
}

// Reading is one scalar summary of one device buffer, stamped with the
// cursor position current at the moment it was published.
type Reading struct {
	// Position is the cursor coordinate sampled at publish time.
	Position Position

	// Value is the RMS or peak amplitude of the buffer, depending on the
	// configured [Measure].
	Value float64

	// Time records when the reading was published.
	Time time.Time
}

// StreamInfo describes the open input stream for logging and display.
type StreamInfo struct {
	// Backend is the name of the backend that opened the stream.
	Backend string

	// SampleRate in Hz, as chosen by the device (not negotiated).
	SampleRate float64

	// Channels is the device's channel count before downmixing.
	Channels int
}

// Source is an audio input stream that publishes readings through a
// [Publisher] for the lifetime of the process.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Start opens the backend's input device with its default configuration
	// and begins delivering readings. The supplied ctx governs the lifetime
	// of the open attempt only; once started, the stream runs until [Source.Close].
	//
	// A missing input device or a failure to start the stream is returned as
	// an error wrapping [ErrDeviceUnavailable] or [ErrStreamStart]; callers
	// treat both as fatal (no retry).
	Start(ctx context.Context) error

	// Info returns details of the open stream. Valid only after a
	// successful Start.
	Info() StreamInfo

	// Close stops the stream and releases device resources. Safe to call
	// more than once; subsequent calls are no-ops and return nil.
	Close() error
}
