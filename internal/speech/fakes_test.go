package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"hark/internal/audio"
	"hark/internal/backend"
)

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
	fail  map[string]error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (audio.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[text]; err != nil {
		return audio.Buffer{}, err
	}
	f.texts = append(f.texts, text)
	return audio.Buffer{Samples: []float32{0.1, -0.1}, SampleRate: 22050}, nil
}

func (f *fakeSynth) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeOutput finishes playback immediately unless hold is set; held playback
// ends on finish() or Halt().
type fakeOutput struct {
	mu      sync.Mutex
	hold    bool
	plays   int
	halts   int
	pending chan struct{}
	once    *sync.Once
}

func (o *fakeOutput) Play(buf audio.Buffer) (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.plays++
	done := make(chan struct{})
	if !o.hold {
		close(done)
		return done, nil
	}
	o.pending = done
	o.once = new(sync.Once)
	return done, nil
}

func (o *fakeOutput) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		ch := o.pending
		o.once.Do(func() { close(ch) })
	}
}

func (o *fakeOutput) Halt() {
	o.mu.Lock()
	o.halts++
	o.mu.Unlock()
	o.finish()
}

// scriptedInterrupter answers Check from a list, false once exhausted.
type scriptedInterrupter struct {
	answers []bool
	calls   int
}

func (s *scriptedInterrupter) Check(ctx context.Context, sess *Session) bool {
	s.calls++
	if s.calls <= len(s.answers) && s.answers[s.calls-1] {
		sess.Stop()
		return true
	}
	return false
}

type sliceStream struct {
	chunks []string
	err    error
	pos    int
	cur    string
	closed bool
}

func (s *sliceStream) Next() bool {
	if s.closed || s.pos >= len(s.chunks) {
		return false
	}
	s.cur = s.chunks[s.pos]
	s.pos++
	return true
}

func (s *sliceStream) Chunk() string { return s.cur }

func (s *sliceStream) Err() error {
	if s.pos >= len(s.chunks) {
		return s.err
	}
	return nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

type fakeBackend struct {
	stream  *sliceStream
	err     error
	panicky bool
	reqs    []backend.Request
}

func (b *fakeBackend) Generate(ctx context.Context, req backend.Request) (backend.Stream, error) {
	b.reqs = append(b.reqs, req)
	if b.panicky {
		panic("boom")
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.stream, nil
}

type fakeAugmenter struct {
	result string
	err    error
	calls  int
}

func (a *fakeAugmenter) ShouldAugment(text string) bool { return true }

func (a *fakeAugmenter) Augment(ctx context.Context, prompt string) (string, error) {
	a.calls++
	return a.result, a.err
}

// burstInput returns one buffer per Record call, repeating the last.
type burstInput struct {
	mu     sync.Mutex
	peaks  []float32
	err    error
	calls  int
	onCall func(n int)
}

func (in *burstInput) Record(ctx context.Context, d time.Duration) (audio.Buffer, error) {
	in.mu.Lock()
	in.calls++
	n := in.calls
	in.mu.Unlock()
	if in.onCall != nil {
		in.onCall(n)
	}
	if in.err != nil {
		return audio.Buffer{}, in.err
	}
	i := n - 1
	if i >= len(in.peaks) {
		i = len(in.peaks) - 1
	}
	return audio.Buffer{Samples: []float32{0, in.peaks[i], 0}, SampleRate: 16000}, nil
}

var errEngine = errors.New("engine down")
