package audio

import (
	"testing"
	"time"
)

func TestBuffer_PeakAndSilence(t *testing.T) {
	cases := []struct {
		name      string
		samples   []float32
		threshold float32
		peak      float32
		silent    bool
	}{
		{"empty", nil, 0.01, 0, true},
		{"quiet", []float32{0.001, -0.005, 0.002}, 0.01, 0.005, true},
		{"negative_peak", []float32{0.001, -0.5, 0.2}, 0.01, 0.5, false},
		{"at_threshold", []float32{0.01}, 0.01, 0.01, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Buffer{Samples: tc.samples, SampleRate: 16000}
			if got := b.Peak(); got != tc.peak {
				t.Fatalf("peak: got %v want %v", got, tc.peak)
			}
			if got := b.Silent(tc.threshold); got != tc.silent {
				t.Fatalf("silent: got %v want %v", got, tc.silent)
			}
		})
	}
}

func TestBuffer_Normalized(t *testing.T) {
	b := Buffer{Samples: []float32{2, -4, 1}, SampleRate: 16000}
	n := b.Normalized()
	if n.Peak() != 1 {
		t.Fatalf("expected peak 1 after normalizing, got %v", n.Peak())
	}
	if n.Samples[0] != 0.5 || n.Samples[1] != -1 || n.Samples[2] != 0.25 {
		t.Fatalf("unexpected samples %v", n.Samples)
	}
	if b.Samples[0] != 2 {
		t.Fatalf("source buffer must not be modified")
	}

	in := Buffer{Samples: []float32{0.5, -0.25}}
	if out := in.Normalized(); &out.Samples[0] != &in.Samples[0] {
		t.Fatalf("in-range buffer should be returned as is")
	}
}

func TestMono_DownmixesStereo(t *testing.T) {
	b := Mono([]float32{1, 0, -1, -1}, 2, 16000)
	if len(b.Samples) != 2 || b.Samples[0] != 0.5 || b.Samples[1] != -1 {
		t.Fatalf("unexpected downmix %v", b.Samples)
	}
	if b.SampleRate != 16000 {
		t.Fatalf("sample rate lost")
	}
}

func TestBuffer_Duration(t *testing.T) {
	b := Buffer{Samples: make([]float32, 1600), SampleRate: 16000}
	if d := b.Duration(); d != 100*time.Millisecond {
		t.Fatalf("got %v", d)
	}
	if d := (Buffer{Samples: make([]float32, 10)}).Duration(); d != 0 {
		t.Fatalf("zero rate should give zero duration, got %v", d)
	}
}
