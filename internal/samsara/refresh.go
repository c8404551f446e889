package samsara

import (
	"context"

	"go.uber.org/zap"
)

// RunRefreshLoop keeps the vehicle cache warm: it holds one long-lived
// session scope and performs an uncached fetch every refresh interval
// until ctx is cancelled. A failed fetch is logged and the loop simply
// waits for the next round. Starting the loop while it is already
// running is a logged no-op; once it has stopped it can be started
// again.
func (c *Client) RunRefreshLoop(ctx context.Context) {
	c.loopMu.Lock()
	if c.loopRunning {
		c.loopMu.Unlock()
		c.log.Warn("refresh loop already running, ignoring start")
		return
	}
	c.loopRunning = true
	c.loopMu.Unlock()

	defer func() {
		c.loopMu.Lock()
		c.loopRunning = false
		c.loopMu.Unlock()
		c.log.Info("refresh loop stopped")
	}()

	release := c.Acquire()
	defer release()

	c.log.Info("refresh loop started", zap.Duration("interval", c.refreshRate))

	for {
		if ctx.Err() != nil {
			return
		}
		if vehicles := c.GetVehicles(ctx, false); len(vehicles) == 0 {
			c.log.Warn("scheduled vehicle refresh returned no data")
		}
		if err := c.sleep(ctx, c.refreshRate); err != nil {
			return
		}
	}
}

// RefreshRunning reports whether the background refresh loop is live.
func (c *Client) RefreshRunning() bool {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	return c.loopRunning
}
