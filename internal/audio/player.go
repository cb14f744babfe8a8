package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Player plays buffers on the default output through the beep speaker.
// Only one buffer is audible at a time; Halt silences it immediately.
type Player struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	finish func()
}

func NewPlayer() *Player { return &Player{} }

// Play starts playback and returns a channel closed when the buffer has been
// played out or halted.
func (p *Player) Play(buf Buffer) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sr := beep.SampleRate(buf.SampleRate)
	if sr <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrDevice, buf.SampleRate)
	}
	if p.rate != sr {
		if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
			return nil, fmt.Errorf("%w: speaker init: %v", ErrDevice, err)
		}
		p.rate = sr
	}

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }
	p.finish = finish

	speaker.Play(beep.Seq(&pcmStreamer{samples: buf.Samples}, beep.Callback(finish)))
	return done, nil
}

// Halt drops whatever the speaker is playing.
func (p *Player) Halt() {
	speaker.Clear()

	p.mu.Lock()
	finish := p.finish
	p.finish = nil
	p.mu.Unlock()

	if finish != nil {
		finish()
	}
}

// pcmStreamer feeds mono samples to both speaker channels.
type pcmStreamer struct {
	samples []float32
	pos     int
}

func (s *pcmStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := 0
	for n < len(out) && s.pos < len(s.samples) {
		v := float64(s.samples[s.pos])
		out[n][0] = v
		out[n][1] = v
		n++
		s.pos++
	}
	return n, true
}

func (s *pcmStreamer) Err() error { return nil }
