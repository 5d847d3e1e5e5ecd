package runtimelink

import (
	"context"
	"errors"
	"time"

	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

// keepAlive re-sends the configured run mode every interval while the
// connection is ready. The Runtime falls back to idle when it stops hearing
// from the console.
func (c *Console) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.KeepAlive.Interval)
	defer ticker.Stop()

	log := c.logger.With("mode", c.cfg.KeepAlive.Mode.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := c.manager.SendRunMode(c.cfg.KeepAlive.Mode)
		switch {
		case err == nil:
		case errors.Is(err, runtimeconn.ErrNotReady):
			log.Debug("keep-alive skipped", "reason", "not ready")
		case errors.Is(err, runtimeconn.ErrShutdown):
			return
		default:
			log.Warn("keep-alive failed", "error", err)
		}
	}
}
