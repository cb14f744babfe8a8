// Package clip captures one utterance or audio file on demand, transcribes it
// and hands the text to the clipboard.
package clip

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"

	"hark/internal/audio"
	"hark/pkg/audioconv"
)

var (
	ErrSilent = errors.New("no speech captured")
	ErrEmpty  = errors.New("empty transcription")
)

type Recorder interface {
	Record(ctx context.Context, d time.Duration) (audio.Buffer, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, buf audio.Buffer) (string, error)
}

type Result struct {
	Source string // "mic" or the file path
	Text   string
	Err    error
}

type Config struct {
	Window    time.Duration
	Threshold float32
	Timeout   time.Duration
}

// Worker runs at most one capture at a time; triggers arriving while one is
// in flight are dropped.
type Worker struct {
	rec Recorder
	stt Transcriber
	cfg Config

	busy    atomic.Bool
	mu      sync.Mutex // guards closed and wg.Add
	closed  bool
	wg      sync.WaitGroup
	results chan Result

	// OnStart fires when a capture is accepted, before recording.
	OnStart func(source string)
}

func NewWorker(rec Recorder, tr Transcriber, cfg Config) *Worker {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.01
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Worker{rec: rec, stt: tr, cfg: cfg, results: make(chan Result, 4)}
}

func (w *Worker) Results() <-chan Result { return w.results }

// Trigger records one window from the microphone. It reports whether the
// capture was started.
func (w *Worker) Trigger(ctx context.Context) bool {
	return w.start(ctx, "mic", w.captureMic)
}

// TranscribeFile decodes an audio file instead of recording.
func (w *Worker) TranscribeFile(ctx context.Context, path string) bool {
	return w.start(ctx, path, func(ctx context.Context) (audio.Buffer, error) {
		pcm, err := audioconv.ConvertFile(ctx, path, audioconv.Options{SampleRate: audioconv.DefaultSampleRate})
		if err != nil {
			return audio.Buffer{}, err
		}
		return audio.Buffer{Samples: pcm, SampleRate: audioconv.DefaultSampleRate}, nil
	})
}

// Wait blocks until the capture in flight, if any, is done.
func (w *Worker) Wait() { w.wg.Wait() }

// Close refuses further captures, waits for the one in flight and closes
// Results.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.wg.Wait()
	close(w.results)
}

func (w *Worker) start(ctx context.Context, source string, capture func(context.Context) (audio.Buffer, error)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}
	if !w.busy.CompareAndSwap(false, true) {
		log.Info("Capture already in progress, ignoring", "source", source)
		return false
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.busy.Store(false)

		if w.OnStart != nil {
			w.OnStart(source)
		}

		ctx, cancel := context.WithTimeout(ctx, w.cfg.Window+w.cfg.Timeout)
		defer cancel()

		text, err := w.transcribe(ctx, capture)
		w.results <- Result{Source: source, Text: text, Err: err}
	}()
	return true
}

func (w *Worker) captureMic(ctx context.Context) (audio.Buffer, error) {
	log.Info("Listening", "window", w.cfg.Window)
	return w.rec.Record(ctx, w.cfg.Window)
}

func (w *Worker) transcribe(ctx context.Context, capture func(context.Context) (audio.Buffer, error)) (string, error) {
	buf, err := capture(ctx)
	if err != nil {
		return "", err
	}
	if buf.Peak() <= w.cfg.Threshold {
		return "", ErrSilent
	}

	text, err := w.stt.Transcribe(ctx, buf)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SystemClipboard writes through xclip, xsel or wl-copy, whichever exists.
func SystemClipboard() Clipboard { return systemClipboard{} }

// Deliver copies every successful result to cb until results is closed or
// ctx ends. onCopy, if set, sees each copied text.
func Deliver(ctx context.Context, results <-chan Result, cb Clipboard, onCopy func(Result)) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			if r.Err != nil {
				log.Warn("Capture produced no text", "source", r.Source, "err", r.Err)
				continue
			}
			if err := cb.WriteAll(r.Text); err != nil {
				log.Error("Failed to write clipboard", "err", err)
				continue
			}
			log.Info("Copied to clipboard", "source", r.Source, "text", r.Text)
			if onCopy != nil {
				onCopy(r)
			}
		}
	}
}
