package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fromMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	c, err := load(fromMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Backend.Kind != "ollama" || c.Backend.Model != "mistral" || c.Backend.MaxTokens != 500 {
		t.Fatalf("unexpected backend defaults %+v", c.Backend)
	}
	if c.Interrupt.Threshold != 0.01 || c.Interrupt.Burst != 100*time.Millisecond || !c.Interrupt.Enabled {
		t.Fatalf("unexpected interrupt defaults %+v", c.Interrupt)
	}
	if c.Audio.Window != 5*time.Second || c.Audio.SampleRate != 16000 || c.Audio.Channels != 1 {
		t.Fatalf("unexpected audio defaults %+v", c.Audio)
	}
	if c.Whisper.Threads != 0 || c.Whisper.Translate || c.Whisper.InitialPrompt != "" || c.Whisper.BeamSize != 5 {
		t.Fatalf("unexpected whisper defaults %+v", c.Whisper)
	}
	if !c.Search.Enabled || c.Duck.Enabled || c.BusURL != "" {
		t.Fatalf("unexpected feature defaults %+v", c)
	}
}

func TestLoad_Overrides(t *testing.T) {
	c, err := load(fromMap(map[string]string{
		"BACKEND":                "OpenAI",
		"OPENAI_API_KEY":         "sk-test",
		"GEN_TEMPERATURE":        "0.2",
		"INTERRUPT_ENABLED":      "false",
		"INTERRUPT_THRESHOLD":    "0.05",
		"LISTEN_WINDOW":          "3s",
		"CLIP_SOCKET":            " /run/hark.sock ",
		"WHISPER_THREADS":        "4",
		"WHISPER_INITIAL_PROMPT": "Hey Mistral.",
		"WHISPER_TRANSLATE":      "true",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Backend.Kind != "openai" || c.Backend.Temperature != 0.2 {
		t.Fatalf("backend overrides ignored: %+v", c.Backend)
	}
	if c.Interrupt.Enabled || c.Interrupt.Threshold != 0.05 {
		t.Fatalf("interrupt overrides ignored: %+v", c.Interrupt)
	}
	if c.Whisper.Threads != 4 || c.Whisper.InitialPrompt != "Hey Mistral." || !c.Whisper.Translate {
		t.Fatalf("whisper overrides ignored: %+v", c.Whisper)
	}
	if c.Audio.Window != 3*time.Second || c.Clip.Socket != "/run/hark.sock" {
		t.Fatalf("overrides ignored: %+v %+v", c.Audio, c.Clip)
	}
}

func TestLoad_CollectsErrors(t *testing.T) {
	_, err := load(fromMap(map[string]string{
		"BACKEND":        "openai",
		"GEN_MAX_TOKENS": "lots",
		"LISTEN_WINDOW":  "5",
		"SEARCH_ENABLED": "maybe",
	}))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	for _, key := range []string{"OPENAI_API_KEY", "GEN_MAX_TOKENS", "LISTEN_WINDOW", "SEARCH_ENABLED"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	if _, err := load(fromMap(map[string]string{"BACKEND": "llamafile"})); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
