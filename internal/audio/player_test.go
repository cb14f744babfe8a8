package audio

import "testing"

func TestPCMStreamer_CopiesMonoToBothChannels(t *testing.T) {
	s := &pcmStreamer{samples: []float32{0.5, -0.25, 1}}

	out := make([][2]float64, 2)
	n, ok := s.Stream(out)
	if !ok || n != 2 {
		t.Fatalf("first read: n=%d ok=%v", n, ok)
	}
	if out[0] != [2]float64{0.5, 0.5} || out[1] != [2]float64{-0.25, -0.25} {
		t.Fatalf("unexpected frames %v", out)
	}

	n, ok = s.Stream(out)
	if !ok || n != 1 || out[0][1] != 1 {
		t.Fatalf("second read: n=%d ok=%v frames=%v", n, ok, out)
	}

	if n, ok = s.Stream(out); ok || n != 0 {
		t.Fatalf("expected drained streamer, got n=%d ok=%v", n, ok)
	}
}
