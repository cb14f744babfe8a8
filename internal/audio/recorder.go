package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Recorder captures fixed-length windows from the default input device.
type Recorder struct {
	sampleRate int
	channels   int
	frameSize  int
}

func NewRecorder(sampleRate, channels int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	return &Recorder{
		sampleRate: sampleRate,
		channels:   channels,
		frameSize:  sampleRate / 50, // 20ms
	}
}

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: portaudio init: %v", ErrDevice, err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record blocks for the whole window and returns it downmixed to mono.
func (r *Recorder) Record(ctx context.Context, d time.Duration) (Buffer, error) {
	want := int(d.Seconds() * float64(r.sampleRate))
	if want <= 0 {
		return Buffer{SampleRate: r.sampleRate}, nil
	}

	frame := r.frameSize
	if frame > want {
		frame = want
	}
	buf := make([]float32, frame*r.channels)

	stream, err := portaudio.OpenDefaultStream(r.channels, 0, float64(r.sampleRate), frame, buf)
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: open input: %v", ErrDevice, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return Buffer{}, fmt.Errorf("%w: start input: %v", ErrDevice, err)
	}
	defer stream.Stop()

	out := make([]float32, 0, want*r.channels)
	for len(out) < want*r.channels {
		if err := ctx.Err(); err != nil {
			return Buffer{}, err
		}
		if err := stream.Read(); err != nil {
			return Buffer{}, fmt.Errorf("%w: read input: %v", ErrDevice, err)
		}
		out = append(out, buf...)
	}

	return Mono(out[:want*r.channels], r.channels, r.sampleRate), nil
}

// LogDevices reports every device portaudio can see.
func LogDevices() {
	devs, err := portaudio.Devices()
	if err != nil {
		log.Warn("Failed to list audio devices", "err", err)
		return
	}
	for i, d := range devs {
		log.Debug("Audio device",
			"index", i,
			"name", d.Name,
			"in", d.MaxInputChannels,
			"out", d.MaxOutputChannels,
			"rate", d.DefaultSampleRate,
		)
	}
}
