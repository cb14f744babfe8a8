package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"hark/internal/audio"
)

// ErrBusy is returned when a session is started while another still plays.
var ErrBusy = errors.New("playback session already active")

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio.Buffer, error)
}

// Output is the playback device. Play returns a channel closed when the
// buffer finished or was halted.
type Output interface {
	Play(buf audio.Buffer) (<-chan struct{}, error)
	Halt()
}

// Voice synthesizes and plays text, keeping at most one Session alive.
type Voice struct {
	synth Synthesizer
	out   Output

	mu     sync.Mutex
	active *Session
}

func NewVoice(synth Synthesizer, out Output) *Voice {
	return &Voice{synth: synth, out: out}
}

// Start synthesizes text and begins playing it without waiting for the end.
// Whitespace-only text yields an already finished session.
func (v *Voice) Start(ctx context.Context, text string) (*Session, error) {
	if strings.TrimSpace(text) == "" {
		return finishedSession(audio.Buffer{}), nil
	}
	if v.busy() {
		return nil, ErrBusy
	}

	buf, err := v.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(buf.Samples) == 0 {
		return finishedSession(buf), nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.active != nil && v.active.Playing() {
		return nil, ErrBusy
	}

	done, err := v.out.Play(buf)
	if err != nil {
		return nil, err
	}

	s := newSession(buf, done, v.out.Halt)
	v.active = s
	return s, nil
}

// Say speaks text to the end.
func (v *Voice) Say(ctx context.Context, text string) error {
	s, err := v.Start(ctx, text)
	if err != nil {
		return err
	}
	return s.Wait(ctx)
}

// Active returns the session currently playing, if any.
func (v *Voice) Active() *Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active != nil && !v.active.Playing() {
		v.active = nil
	}
	return v.active
}

// Stop cancels whatever is playing.
func (v *Voice) Stop() {
	if s := v.Active(); s != nil {
		s.Stop()
	}
}

func (v *Voice) busy() bool { return v.Active() != nil }
