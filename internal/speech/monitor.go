package speech

import (
	"context"
	log "log/slog"
	"time"

	"hark/internal/audio"
)

const (
	DefaultThreshold = 0.01
	DefaultBurst     = 100 * time.Millisecond
	DefaultSettle    = 100 * time.Millisecond
)

// Input captures short microphone bursts.
type Input interface {
	Record(ctx context.Context, d time.Duration) (audio.Buffer, error)
}

type MonitorConfig struct {
	Threshold float32
	Burst     time.Duration
	Settle    time.Duration
	// Disabled turns the monitor into a plain wait for playback to end.
	Disabled bool
}

// Monitor listens while a session plays and stops it when the user talks.
type Monitor struct {
	in    Input
	cfg   MonitorConfig
	sleep func(time.Duration)
}

func NewMonitor(in Input, cfg MonitorConfig) *Monitor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	return &Monitor{in: in, cfg: cfg, sleep: time.Sleep}
}

// Check samples bursts for as long as s plays. It returns true after a burst
// peaks above the threshold: the session is stopped and the monitor waits the
// settle delay before returning. It returns false once playback ends first.
func (m *Monitor) Check(ctx context.Context, s *Session) bool {
	if m.cfg.Disabled || m.in == nil {
		_ = s.Wait(ctx)
		return false
	}

	for s.Playing() {
		if ctx.Err() != nil {
			return false
		}

		burst, err := m.in.Record(ctx, m.cfg.Burst)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("Error checking for interrupt", "err", err)
			}
			return false
		}

		if peak := burst.Peak(); peak > m.cfg.Threshold {
			log.Info("User started speaking, stopping current response", "peak", peak)
			s.Stop()
			m.sleep(m.cfg.Settle)
			return true
		}
	}
	return false
}
