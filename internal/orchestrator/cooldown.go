// Package orchestrator runs a benchmark sweep end to end.
package orchestrator

import (
	"context"
	"time"
)

// Cooldown is the fixed pause taken after each benchmark run.
type Cooldown struct {
	delay time.Duration
	after func(time.Duration) <-chan time.Time
}

// NewCooldown creates a pacer that waits delay between points.
func NewCooldown(delay time.Duration) *Cooldown {
	return &Cooldown{
		delay: delay,
		after: time.After,
	}
}

// Wait blocks for the configured delay.
// Returns nil on success, or the context error if cancelled first.
func (c *Cooldown) Wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.after(c.delay):
		return nil
	}
}

// EstimatedDuration returns the total time spent cooling down over points runs.
func (c *Cooldown) EstimatedDuration(points int) time.Duration {
	if c.delay <= 0 || points <= 0 {
		return 0
	}
	return time.Duration(points) * c.delay
}

// Delay returns the configured delay.
func (c *Cooldown) Delay() time.Duration {
	return c.delay
}
