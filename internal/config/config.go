// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrConfig = errors.New("config")

type Whisper struct {
	ModelPath     string
	Language      string
	BeamSize      int
	Threads       int
	InitialPrompt string
	Translate     bool
}

type Backend struct {
	Kind        string // "ollama" or "openai"
	URL         string
	Model       string
	APIKey      string
	System      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

type Search struct {
	Enabled bool
	URL     string
}

type Audio struct {
	SampleRate int
	Channels   int
	Window     time.Duration
}

type Interrupt struct {
	Enabled   bool
	Threshold float32
	Burst     time.Duration
	Settle    time.Duration
}

type Voice struct {
	Name string
	Rate int
}

type Duck struct {
	Enabled bool
	Factor  float64
}

type Clip struct {
	Window time.Duration
	Socket string
}

type Config struct {
	Whisper   Whisper
	Backend   Backend
	Search    Search
	Audio     Audio
	Interrupt Interrupt
	Voice     Voice
	Duck      Duck
	Clip      Clip

	ChimePath  string
	BusURL     string
	SocksProxy string
}

// Load reads every key, collecting all malformed values into one error.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	c := Config{
		Whisper: Whisper{
			ModelPath:     e.str("WHISPER_MODEL_PATH", "third_party/whisper.cpp/models/ggml-tiny.en.bin"),
			Language:      e.str("WHISPER_LANGUAGE", "en"),
			BeamSize:      e.int("WHISPER_BEAM_SIZE", 5),
			Threads:       e.int("WHISPER_THREADS", 0),
			InitialPrompt: e.str("WHISPER_INITIAL_PROMPT", ""),
			Translate:     e.bool("WHISPER_TRANSLATE", false),
		},
		Backend: Backend{
			Kind:        strings.ToLower(e.str("BACKEND", "ollama")),
			URL:         e.str("BACKEND_URL", "http://localhost:11434/api/generate"),
			Model:       e.str("BACKEND_MODEL", "mistral"),
			APIKey:      e.str("OPENAI_API_KEY", ""),
			System:      e.str("BACKEND_SYSTEM", ""),
			Temperature: e.float("GEN_TEMPERATURE", 0.7),
			TopP:        e.float("GEN_TOP_P", 0.9),
			MaxTokens:   e.int("GEN_MAX_TOKENS", 500),
		},
		Search: Search{
			Enabled: e.bool("SEARCH_ENABLED", true),
			URL:     e.str("SEARCH_URL", "https://api.duckduckgo.com/"),
		},
		Audio: Audio{
			SampleRate: e.int("SAMPLE_RATE", 16000),
			Channels:   e.int("CHANNELS", 1),
			Window:     e.duration("LISTEN_WINDOW", 5*time.Second),
		},
		Interrupt: Interrupt{
			Enabled:   e.bool("INTERRUPT_ENABLED", true),
			Threshold: float32(e.float("INTERRUPT_THRESHOLD", 0.01)),
			Burst:     e.duration("INTERRUPT_BURST", 100*time.Millisecond),
			Settle:    e.duration("INTERRUPT_SETTLE", 100*time.Millisecond),
		},
		Voice: Voice{
			Name: e.str("ESPEAK_VOICE", "en"),
			Rate: e.int("ESPEAK_RATE", 175),
		},
		Duck: Duck{
			Enabled: e.bool("DUCK_ENABLED", false),
			Factor:  e.float("DUCK_FACTOR", 0.3),
		},
		Clip: Clip{
			Window: e.duration("CLIP_WINDOW", 5*time.Second),
			Socket: e.str("CLIP_SOCKET", "/tmp/hark.sock"),
		},
		ChimePath:  e.str("CHIME_PATH", ""),
		BusURL:     e.str("BUS_URL", ""),
		SocksProxy: e.str("SOCKS_PROXY", ""),
	}

	switch c.Backend.Kind {
	case "ollama":
	case "openai":
		if c.Backend.APIKey == "" {
			e.fail("OPENAI_API_KEY", "required when BACKEND=openai")
		}
	default:
		e.fail("BACKEND", fmt.Sprintf("unknown backend %q", c.Backend.Kind))
	}
	if c.Audio.SampleRate <= 0 {
		e.fail("SAMPLE_RATE", "must be positive")
	}
	if c.Audio.Channels <= 0 {
		e.fail("CHANNELS", "must be positive")
	}

	return c, e.err()
}

type env struct {
	get  func(string) string
	errs []string
}

func (e *env) fail(key, msg string) {
	e.errs = append(e.errs, key+": "+msg)
}

func (e *env) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(e.errs, "; "))
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, "not an integer")
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, "not a number")
		return def
	}
	return f
}

func (e *env) bool(key string, def bool) bool {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, "not a boolean")
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, "not a duration")
		return def
	}
	return d
}
