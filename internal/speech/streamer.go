package speech

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"hark/internal/backend"
)

const (
	TransportApology  = "I apologize, but I'm having trouble connecting to my brain right now. Could you try again?"
	UnexpectedApology = "I encountered an unexpected error. Could you rephrase that?"
)

var ErrEmptyPrompt = errors.New("empty prompt")

// Augmenter enriches a prompt with search context. Failures are never fatal.
type Augmenter interface {
	ShouldAugment(text string) bool
	Augment(ctx context.Context, prompt string) (string, error)
}

// Interrupter watches a playing session and reports whether the user talked
// over it.
type Interrupter interface {
	Check(ctx context.Context, s *Session) bool
}

type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int

	// Augmenter is optional.
	Augmenter Augmenter
	// OnSentence sees every sentence right before it is spoken.
	OnSentence func(string)
}

// Reply is the outcome of one streamed turn.
type Reply struct {
	Text        string
	Sentences   []string
	Interrupted bool
	// Failed holds the error behind an apology; Text is the apology then.
	Failed error
}

type Streamer struct {
	backend backend.Backend
	voice   *Voice
	monitor Interrupter
	opt     Options
}

func NewStreamer(b backend.Backend, v *Voice, m Interrupter, opt Options) *Streamer {
	return &Streamer{backend: b, voice: v, monitor: m, opt: opt}
}

// Stream sends prompt to the backend and speaks the reply sentence by
// sentence. Backend and synthesis failures are spoken as an apology and do
// not surface as an error; only an empty prompt or a cancelled ctx do.
func (s *Streamer) Stream(ctx context.Context, prompt string) (Reply, error) {
	if strings.TrimSpace(prompt) == "" {
		return Reply{}, ErrEmptyPrompt
	}

	reply, err := s.run(ctx, prompt)
	if err == nil {
		return reply, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return reply, ctxErr
	}

	apology := UnexpectedApology
	if errors.Is(err, backend.ErrTransport) {
		log.Error("Error connecting to backend", "err", err)
		apology = TransportApology
	} else {
		log.Error("Unexpected error in stream", "err", err)
	}

	// a failure can leave the last sentence playing
	s.voice.Stop()

	s.emit(apology)
	if serr := s.voice.Say(ctx, apology); serr != nil {
		log.Error("Failed to speak apology", "err", serr)
	}
	return Reply{Text: apology, Sentences: []string{apology}, Failed: err}, nil
}

func (s *Streamer) run(ctx context.Context, prompt string) (reply Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	stream, err := s.backend.Generate(ctx, backend.Request{
		Prompt:      s.augment(ctx, prompt),
		Temperature: s.opt.Temperature,
		TopP:        s.opt.TopP,
		MaxTokens:   s.opt.MaxTokens,
	})
	if err != nil {
		return reply, err
	}
	defer stream.Close()

	var (
		full strings.Builder
		acc  Accumulator
	)
	for stream.Next() {
		chunk := stream.Chunk()
		full.WriteString(chunk)
		acc.Append(chunk)

		if !acc.Complete() {
			continue
		}

		sentence := acc.Flush()
		reply.Sentences = append(reply.Sentences, sentence)
		s.emit(sentence)

		sess, err := s.voice.Start(ctx, sentence)
		if err != nil {
			return reply, err
		}
		interrupted := s.monitor.Check(ctx, sess)
		if err := sess.Wait(ctx); err != nil {
			return reply, err
		}
		if interrupted {
			reply.Text = full.String()
			reply.Interrupted = true
			return reply, nil
		}
	}
	if err := stream.Err(); err != nil {
		return reply, err
	}

	if rest := acc.Flush(); rest != "" {
		reply.Sentences = append(reply.Sentences, rest)
		s.emit(rest)
		if err := s.voice.Say(ctx, rest); err != nil {
			return reply, err
		}
	}

	reply.Text = full.String()
	return reply, nil
}

func (s *Streamer) augment(ctx context.Context, prompt string) string {
	a := s.opt.Augmenter
	if a == nil || !a.ShouldAugment(prompt) {
		return prompt
	}
	log.Info("Searching the web for context")
	augmented, err := a.Augment(ctx, prompt)
	if err != nil {
		log.Warn("Web search failed, using original prompt", "err", err)
		return prompt
	}
	return augmented
}

func (s *Streamer) emit(sentence string) {
	log.Info("Assistant", "text", sentence)
	if s.opt.OnSentence != nil {
		s.opt.OnSentence(sentence)
	}
}
