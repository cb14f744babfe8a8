// Package assistant drives the conversation: it listens in fixed windows,
// waits for a wake phrase and hands every later utterance to the streamer.
package assistant

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"hark/internal/audio"
	"hark/internal/bus"
	"hark/internal/speech"
)

type State int

const (
	Idle State = iota
	Active
	Exit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Exit:
		return "exit"
	}
	return "unknown"
}

type Recorder interface {
	Record(ctx context.Context, d time.Duration) (audio.Buffer, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, buf audio.Buffer) (string, error)
}

type Speaker interface {
	Say(ctx context.Context, text string) error
}

type Responder interface {
	Stream(ctx context.Context, prompt string) (speech.Reply, error)
}

type Ducker interface {
	Duck(ctx context.Context, factor float64, d time.Duration) error
	Unduck(ctx context.Context, d time.Duration) error
}

type Chime interface {
	Play(ctx context.Context) error
}

type Publisher interface {
	Publish(e bus.Event) error
}

type Config struct {
	Window    time.Duration
	Threshold float32

	DuckFactor float64
	DuckFade   time.Duration
}

type Option func(*Loop)

func WithDucker(d Ducker) Option { return func(l *Loop) { l.ducker = d } }

func WithChime(c Chime) Option { return func(l *Loop) { l.chime = c } }

func WithPublisher(p Publisher) Option { return func(l *Loop) { l.pub = p } }

type Loop struct {
	rec   Recorder
	stt   Transcriber
	voice Speaker
	resp  Responder
	cfg   Config

	ducker Ducker
	chime  Chime
	pub    Publisher

	state State
	turn  string
}

func New(rec Recorder, stt Transcriber, voice Speaker, resp Responder, cfg Config, opts ...Option) *Loop {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = speech.DefaultThreshold
	}
	if cfg.DuckFactor <= 0 {
		cfg.DuckFactor = 0.3
	}
	if cfg.DuckFade <= 0 {
		cfg.DuckFade = 200 * time.Millisecond
	}

	l := &Loop{rec: rec, stt: stt, voice: voice, resp: resp, cfg: cfg}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loop) State() State { return l.state }

// Run loops until an exit utterance or ctx cancellation; both return nil.
// Failures inside a turn are spoken as an apology and reset to Idle.
func (l *Loop) Run(ctx context.Context) error {
	log.Info("Voice assistant started")
	l.say(ctx, Greeting)

	for {
		if ctx.Err() != nil {
			log.Info("Shutting down")
			return nil
		}

		err := l.step(ctx)
		switch {
		case ctx.Err() != nil:
			log.Info("Shutting down")
			return nil
		case l.state == Exit:
			return nil
		case err != nil:
			log.Error("Error in main loop", "err", err)
			l.setState(Idle)
			l.say(ctx, ErrorApology)
		}
	}
}

func (l *Loop) step(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	buf, err := l.rec.Record(ctx, l.cfg.Window)
	if err != nil {
		return err
	}
	if buf.Silent(l.cfg.Threshold) {
		return nil
	}

	text, err := l.stt.Transcribe(ctx, buf)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if l.state == Idle {
		l.turn = bus.NewTurn()
	}
	log.Info("You said", "text", text)
	l.publish(bus.KindHeard, text)

	if IsExit(text) {
		l.say(ctx, Farewell)
		l.setState(Exit)
		return nil
	}

	switch l.state {
	case Idle:
		if IsWake(text) {
			l.setState(Active)
			l.playChime(ctx)
			l.say(ctx, Acknowledge)
		}
		return nil
	case Active:
		return l.respond(ctx, text)
	}
	return nil
}

func (l *Loop) respond(ctx context.Context, text string) error {
	if l.ducker != nil {
		if err := l.ducker.Duck(ctx, l.cfg.DuckFactor, l.cfg.DuckFade); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := l.ducker.Unduck(context.WithoutCancel(ctx), l.cfg.DuckFade); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	reply, err := l.resp.Stream(ctx, text)
	if err != nil {
		return err
	}
	if reply.Interrupted {
		log.Info("Response interrupted", "spoken", reply.Text)
	}
	l.publish(bus.KindReply, reply.Text)
	return nil
}

func (l *Loop) setState(s State) {
	if l.state == s {
		return
	}
	log.Debug("State change", "from", l.state, "to", s)
	l.state = s
	l.publish(bus.KindState, s.String())
}

func (l *Loop) say(ctx context.Context, text string) {
	log.Info("Assistant", "text", text)
	if err := l.voice.Say(ctx, text); err != nil && ctx.Err() == nil {
		log.Error("Failed to speak", "err", err)
	}
}

func (l *Loop) playChime(ctx context.Context) {
	if l.chime == nil {
		return
	}
	if err := l.chime.Play(ctx); err != nil {
		log.Warn("Failed to play chime", "err", err)
	}
}

// OnSentence forwards streamed sentences to the bus.
func (l *Loop) OnSentence(s string) { l.publish(bus.KindSentence, s) }

func (l *Loop) publish(kind bus.Kind, content string) {
	if l.pub == nil {
		return
	}
	if err := l.pub.Publish(bus.Event{Turn: l.turn, Kind: kind, Content: content}); err != nil {
		log.Warn("Failed to publish event", "kind", kind, "err", err)
	}
}
