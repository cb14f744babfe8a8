// Package notify plays the wake chime and posts desktop notifications.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"hark/internal/audio"
	"hark/pkg/audioconv"
)

const chimeRate = 22050

type Output interface {
	Play(buf audio.Buffer) (<-chan struct{}, error)
}

// Chime plays a short sound file. The file is decoded once, on first use.
type Chime struct {
	path string
	out  Output

	once sync.Once
	buf  audio.Buffer
	err  error
}

func NewChime(path string, out Output) *Chime {
	return &Chime{path: path, out: out}
}

func (c *Chime) load(ctx context.Context) {
	pcm, err := audioconv.ConvertFile(ctx, c.path, audioconv.Options{SampleRate: chimeRate})
	if err != nil {
		c.err = fmt.Errorf("chime %s: %w", c.path, err)
		return
	}
	c.buf = audio.Buffer{Samples: pcm, SampleRate: chimeRate}
}

// Play blocks until the chime has played out.
func (c *Chime) Play(ctx context.Context) error {
	c.once.Do(func() { c.load(ctx) })
	if c.err != nil {
		return c.err
	}

	done, err := c.out.Play(c.buf)
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type runner func(ctx context.Context, name string, args ...string) error

func runCmd(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Notifier posts desktop notifications with notify-send.
type Notifier struct {
	app string
	run runner
}

func NewNotifier(app string) *Notifier {
	return &Notifier{app: app, run: runCmd}
}

func (n *Notifier) Send(ctx context.Context, summary, body string) error {
	args := []string{"--app-name", n.app, "--expire-time", "2000", summary}
	if body != "" {
		args = append(args, body)
	}
	return n.run(ctx, "notify-send", args...)
}
