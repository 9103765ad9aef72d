// Package capture takes PNG previews of the explorer page with headless
// Chromium, once or on a cron schedule.
package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "ngoexplorer/internal/log"
)

// CaptureFunc performs one capture. PNG satisfies it.
type CaptureFunc func(ctx context.Context, opts Options) error

// Scheduler re-captures the preview on a standard 5-field cron spec.
// Runs never overlap; a tick that fires during a capture is skipped.
type Scheduler struct {
	cron    *cron.Cron
	opts    Options
	capture CaptureFunc

	mu      sync.Mutex
	running bool
}

// NewScheduler validates spec and prepares the schedule. Nothing runs
// until Start.
func NewScheduler(spec string, opts Options, fn CaptureFunc) (*Scheduler, error) {
	if fn == nil {
		fn = PNG
	}
	s := &Scheduler{
		cron:    cron.New(),
		opts:    opts,
		capture: fn,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("capture: bad cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	appLog.Info("preview schedule started", "entries", len(s.cron.Entries()), "output", s.opts.OutputPath)
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		appLog.Info("preview schedule stopped")
	}()
}

// RunOnce captures immediately, respecting the no-overlap rule. It
// reports whether a capture actually ran.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return true, s.capture(ctx, s.opts)
}

func (s *Scheduler) tick() {
	ran, err := s.RunOnce(context.Background())
	switch {
	case err != nil:
		appLog.Error("preview capture failed", err, "url", s.opts.URL)
	case !ran:
		appLog.Debug("preview capture skipped; previous run still active")
	default:
		appLog.Info("preview captured", "path", s.opts.OutputPath)
	}
}
