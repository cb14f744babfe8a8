// Package speech is the interruptible speaking pipeline: it turns a streamed
// reply into sentences, plays each one, and listens for the user talking over
// it.
package speech

import (
	"context"
	"sync/atomic"

	"hark/internal/audio"
)

type SessionState int32

const (
	Playing SessionState = iota
	Finished
	Cancelled
)

func (s SessionState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Session is one sentence being played. Its state only moves forward:
// Playing -> Finished or Playing -> Cancelled.
type Session struct {
	Audio audio.Buffer

	state atomic.Int32
	done  <-chan struct{}
	halt  func()
}

func newSession(buf audio.Buffer, done <-chan struct{}, halt func()) *Session {
	return &Session{Audio: buf, done: done, halt: halt}
}

func finishedSession(buf audio.Buffer) *Session {
	done := make(chan struct{})
	close(done)
	s := &Session{Audio: buf, done: done, halt: func() {}}
	s.state.Store(int32(Finished))
	return s
}

func (s *Session) State() SessionState {
	if SessionState(s.state.Load()) == Playing {
		select {
		case <-s.done:
			s.state.CompareAndSwap(int32(Playing), int32(Finished))
		default:
		}
	}
	return SessionState(s.state.Load())
}

func (s *Session) Playing() bool { return s.State() == Playing }

func (s *Session) Cancelled() bool { return s.State() == Cancelled }

// Done is closed once the audio has played out or been halted.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop flags the session cancelled and halts device output. It reports
// whether this call did the cancelling.
func (s *Session) Stop() bool {
	if !s.state.CompareAndSwap(int32(Playing), int32(Cancelled)) {
		return false
	}
	s.halt()
	return true
}

// Wait blocks until playback ends. A cancelled ctx stops the session.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.State()
		return nil
	case <-ctx.Done():
		s.Stop()
		return ctx.Err()
	}
}
