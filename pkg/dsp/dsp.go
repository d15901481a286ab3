// Package dsp provides the small set of signal primitives the soundfield
// pipeline derives its readings from: RMS and peak amplitude over a buffer of
// float32 samples, and channel downmixing for interleaved multi-channel frames.
//
// All functions are pure and allocation-free unless documented otherwise, so
// they are safe to call from an audio callback.
package dsp

import "math"

// RMS returns the root-mean-square of samples: sqrt(mean(s^2)).
// Returns 0 for an empty buffer.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample value in the buffer.
// Returns 0 for an empty buffer.
func Peak(samples []float32) float64 {
	var max float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > max {
			max = a
		}
	}
	return max
}

// DownmixMode selects how interleaved multi-channel frames are reduced to one
// channel before a reading is computed.
type DownmixMode string

const (
	// DownmixFirst takes channel 0 of each frame and discards the rest.
	DownmixFirst DownmixMode = "first"

	// DownmixAverage averages all channels of each frame.
	DownmixAverage DownmixMode = "average"
)

// IsValid reports whether m is a recognised downmix mode.
func (m DownmixMode) IsValid() bool {
	return m == DownmixFirst || m == DownmixAverage
}

// Downmix reduces interleaved multi-channel samples to a single channel
// according to mode. A trailing partial frame is dropped. For channels <= 1
// the input is returned unchanged (zero allocation).
//
// Downmix allocates the output slice; use [FrameStats] in callback paths.
func Downmix(interleaved []float32, channels int, mode DownmixMode) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := range frames {
		base := i * channels
		if mode == DownmixAverage {
			var sum float32
			for c := range channels {
				sum += interleaved[base+c]
			}
			out[i] = sum / float32(channels)
		} else {
			out[i] = interleaved[base]
		}
	}
	return out
}

// FrameStats computes the RMS and peak amplitude of one interleaved buffer in
// a single pass, downmixing on the fly without allocating. This is the form
// the capture callbacks use. A trailing partial frame is ignored. channels
// values below 1 are treated as mono.
func FrameStats(interleaved []float32, channels int, mode DownmixMode) (rms, peak float64) {
	if channels < 1 {
		channels = 1
	}
	frames := len(interleaved) / channels
	if frames == 0 {
		return 0, 0
	}

	var sum float64
	for i := range frames {
		base := i * channels
		var s float64
		if channels == 1 {
			s = float64(interleaved[base])
		} else if mode == DownmixAverage {
			var acc float32
			for c := range channels {
				acc += interleaved[base+c]
			}
			s = float64(acc / float32(channels))
		} else {
			s = float64(interleaved[base])
		}

		sum += s * s
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return math.Sqrt(sum / float64(frames)), peak
}
