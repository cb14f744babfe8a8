package audio

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

const sinkInputsFixture = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Volume: front-left: 39322 /  60% / -13.31 dB,   front-right: 39322 /  60% / -13.31 dB
	Properties:
		application.name = "ALSA plug-in [hark]"
Sink Input #bogus
	Volume: front-left: 65536 / 100% / 0.00 dB
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputsFixture)
	if len(got) != 2 {
		t.Fatalf("expected 2 inputs, got %d: %+v", len(got), got)
	}
	if got[0] != (sinkInput{ID: 41, Volume: 100, AppName: "Firefox"}) {
		t.Fatalf("unexpected first input %+v", got[0])
	}
	if got[1] != (sinkInput{ID: 57, Volume: 60, AppName: "ALSA plug-in [hark]"}) {
		t.Fatalf("unexpected second input %+v", got[1])
	}
	if parseSinkInputs("") != nil {
		t.Fatalf("expected nil for empty output")
	}
}

type fakePactl struct {
	mu  sync.Mutex
	set map[string]string // id -> last volume arg
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if args[0] == "list" {
		return []byte(sinkInputsFixture), nil
	}
	if f.set == nil {
		f.set = make(map[string]string)
	}
	f.set[args[1]] = args[2]
	return nil, nil
}

func TestDucker_DuckAndRestoreSkipsSelf(t *testing.T) {
	fp := &fakePactl{}
	d := NewDucker([]string{"ALSA plug-in [hark]"}, 10)
	d.run = fp.run

	ctx := context.Background()
	if err := d.Duck(ctx, 0.3, 0); err != nil {
		t.Fatalf("duck: %v", err)
	}
	if fp.set["41"] != "30%" {
		t.Fatalf("expected firefox ducked to 30%%, got %q", fp.set["41"])
	}
	if _, touched := fp.set["57"]; touched {
		t.Fatalf("own stream must not be ducked")
	}

	// second Duck while active is a no-op
	fp.set = nil
	if err := d.Duck(ctx, 0.1, 0); err != nil || fp.set != nil {
		t.Fatalf("expected no-op duck, err=%v set=%v", err, fp.set)
	}

	if err := d.Unduck(ctx, 0); err != nil {
		t.Fatalf("unduck: %v", err)
	}
	if fp.set["41"] != "100%" {
		t.Fatalf("expected firefox restored to 100%%, got %q", fp.set["41"])
	}
}

func TestDucker_FadeStepsEndAtTarget(t *testing.T) {
	var calls []string
	d := NewDucker(nil, 0)
	d.run = func(_ context.Context, args ...string) ([]byte, error) {
		calls = append(calls, strings.Join(args, " "))
		return nil, nil
	}
	if err := d.fade(context.Background(), []fadeTarget{{id: 3, from: 100, to: 50}}, 20*time.Millisecond); err != nil {
		t.Fatalf("fade: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 volume steps, got %d: %v", len(calls), calls)
	}
	if calls[len(calls)-1] != "set-sink-input-volume 3 50%" {
		t.Fatalf("last step should hit the target, got %q", calls[len(calls)-1])
	}
}
