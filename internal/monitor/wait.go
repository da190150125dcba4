package monitor

import (
	"context"
	"time"
)

// WaitResult is the outcome of a bounded wait for a child's completion.
type WaitResult int

const (
	// WaitCompleted means the process exited before the ceiling elapsed.
	WaitCompleted WaitResult = iota
	// WaitTimedOut means the process was still alive at the ceiling.
	// The process is left running unsupervised; it is not killed.
	WaitTimedOut
	// WaitCanceled means the context was canceled between polls,
	// typically because a shutdown is pending.
	WaitCanceled
)

func (r WaitResult) String() string {
	switch r {
	case WaitCompleted:
		return "completed"
	case WaitTimedOut:
		return "timed_out"
	case WaitCanceled:
		return "canceled"
	}
	return "unknown"
}

// WaitBounded polls the child's liveness every poll interval until it
// completes or the ceiling elapses. Cancellation is observed between
// polls, so the latency from a pending shutdown to return is bounded by
// the poll interval, never the full ceiling. The call never blocks past
// ceiling + poll.
func WaitBounded(ctx context.Context, c *Child, ceiling, poll time.Duration) WaitResult {
	deadline := time.Now().Add(ceiling)
	for {
		if !c.Alive() {
			return WaitCompleted
		}
		if !time.Now().Before(deadline) {
			return WaitTimedOut
		}
		select {
		case <-ctx.Done():
			return WaitCanceled
		case <-c.Done():
			return WaitCompleted
		case <-time.After(poll):
		}
	}
}
