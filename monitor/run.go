package monitor

import (
	"context"
	"time"

	"hushlight/config"
	"hushlight/log"
)

// Run drives Tick from a ticker until ctx is done. Override toggles and
// configuration reloads are applied between ticks on the same goroutine.
// Calibration state is persisted before Run returns.
func (s *Session) Run(ctx context.Context, overrides <-chan struct{}, reconfig <-chan config.Config) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	defer func() {
		if err := s.Persist(); err != nil {
			log.Errorf("persisting calibration on exit: %v", err)
		}
	}()

	counter := s.opts.Counter
	s.Tick(ctx, counter.Millis())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-overrides:
			if !ok {
				overrides = nil
				continue
			}
			s.ToggleOverride(counter.Millis())
		case cfg, ok := <-reconfig:
			if !ok {
				reconfig = nil
				continue
			}
			log.Info("configuration reloaded")
			s.Apply(cfg)
		case <-ticker.C:
			s.Tick(ctx, counter.Millis())
		}
	}
}
