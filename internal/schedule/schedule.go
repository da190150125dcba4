package schedule

import "time"

// Due reports whether the cadence interval has elapsed since the last
// trigger. The boundary counts: an elapsed time equal to the interval
// fires. Pure function of its inputs.
func Due(now, last time.Time, interval time.Duration) bool {
	return now.Sub(last) >= interval
}

// Clock tracks the time of the last secondary-task trigger. Only the
// supervisor loop writes it, at the moment it decides to trigger, so a
// long-running task cannot cause an immediate re-trigger on the next tick.
type Clock struct {
	last time.Time
}

// NewClock returns a Clock whose last trigger time is start. Starting the
// clock at supervisor startup means the first trigger happens one full
// interval in, matching a fresh scrape run.
func NewClock(start time.Time) *Clock { return &Clock{last: start} }

// Last returns the time of the last trigger.
func (c *Clock) Last() time.Time { return c.last }

// MarkTriggered records now as the last trigger time.
func (c *Clock) MarkTriggered(now time.Time) { c.last = now }

// DueAt reports whether a trigger is due at now for the given interval.
func (c *Clock) DueAt(now time.Time, interval time.Duration) bool {
	return Due(now, c.last, interval)
}
