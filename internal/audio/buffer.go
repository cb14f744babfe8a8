// Package audio owns the sound devices: microphone capture through portaudio,
// speech playback through the beep speaker, and ducking of other applications.
package audio

import (
	"errors"
	"time"

	"hark/pkg/audioconv"
)

// ErrDevice marks failures of the capture or playback device.
var ErrDevice = errors.New("audio device")

// Buffer is a mono PCM window.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Mono builds a Buffer from interleaved samples, averaging channels.
func Mono(interleaved []float32, channels, sampleRate int) Buffer {
	return Buffer{
		Samples:    audioconv.Downmix(interleaved, channels),
		SampleRate: sampleRate,
	}
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() float32 {
	var peak float32
	for _, x := range b.Samples {
		if x < 0 {
			x = -x
		}
		if x > peak {
			peak = x
		}
	}
	return peak
}

// Silent reports whether the peak stays below threshold.
func (b Buffer) Silent(threshold float32) bool {
	return b.Peak() < threshold
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Normalized returns a copy scaled into [-1, 1] when the peak exceeds 1.
func (b Buffer) Normalized() Buffer {
	peak := b.Peak()
	if peak <= 1 {
		return b
	}
	out := make([]float32, len(b.Samples))
	for i, x := range b.Samples {
		out[i] = x / peak
	}
	return Buffer{Samples: out, SampleRate: b.SampleRate}
}
