package auth

import (
	"context"
	"time"
)

// ScheduleState tracks the silent-refresh state machine:
// Idle -> Scheduled -> (Firing -> Scheduled | Terminated).
type ScheduleState int

const (
	// ScheduleIdle means no refresh is pending (unauthenticated, or after
	// an explicit logout).
	ScheduleIdle ScheduleState = iota
	// ScheduleScheduled means a one-shot timer is armed to fire shortly
	// before the access token expires.
	ScheduleScheduled
	// ScheduleFiring means the refresh exchange is in flight.
	ScheduleFiring
	// ScheduleTerminated means a refresh failed and ended the session.
	ScheduleTerminated
)

func (s ScheduleState) String() string {
	switch s {
	case ScheduleIdle:
		return "idle"
	case ScheduleScheduled:
		return "scheduled"
	case ScheduleFiring:
		return "firing"
	case ScheduleTerminated:
		return "terminated"
	}
	return "unknown"
}

// RefreshState returns the current state of the refresh scheduler.
func (c *Controller) RefreshState() ScheduleState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schedState
}

// armRefreshLocked arms the one-shot refresh timer for
// max(expiresAt - now - lead, 0). Called with the lock held; any previous
// timer must already be cancelled, so at most one timer exists per session.
func (c *Controller) armRefreshLocked(expiresAt time.Time) {
	delay := expiresAt.Sub(c.clock.Now()) - c.refreshLead
	if delay < 0 {
		delay = 0
	}

	generation := c.generation
	c.schedState = ScheduleScheduled
	c.timer = c.clock.AfterFunc(delay, func() {
		c.fireRefresh(generation)
	})
}

// cancelTimerLocked stops any outstanding refresh timer. Called with the
// lock held.
func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fireRefresh runs when the timer elapses. The generation check drops firings
// that belong to a session already replaced or ended.
func (c *Controller) fireRefresh(generation uint64) {
	c.mu.Lock()
	if c.generation != generation || c.schedState != ScheduleScheduled {
		c.mu.Unlock()
		return
	}
	c.schedState = ScheduleFiring
	c.timer = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshRequestTimeout)
	defer cancel()

	// Success re-arms the timer inside installSession; failure has already
	// ended the session by the time Refresh returns.
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("scheduled refresh ended the session")
	}
}
