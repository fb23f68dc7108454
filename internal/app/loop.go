package app

import (
	"context"
	"time"

	"stagehand/internal/logging"
)

// RunHeadless drives the runtime without a terminal, one fixed-size tick
// per frame interval, until ctx ends, exit is requested or maxTicks ticks
// have run (0 means no limit). Ticks are paced in real time so background
// loads and writes make progress between frames.
func (r *Runtime) RunHeadless(ctx context.Context, frame time.Duration, maxTicks int) error {
	if frame <= 0 {
		frame = r.cfg.GetFrameInterval()
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for n := 0; maxTicks == 0 || n < maxTicks; n++ {
		r.Tick(frame)
		if r.ExitRequested() {
			logging.Boot("exit requested after %d ticks", n+1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
