package agent

import "fmt"

// callLimiter enforces a maximum number of backend calls per episode.
// It is only touched by the loop goroutine.
type callLimiter struct {
	max   int
	count int
}

// newCallLimiter creates a limiter. If max == 0, unlimited calls are allowed.
func newCallLimiter(max int) *callLimiter {
	return &callLimiter{max: max}
}

// Increment counts a call and returns an error if the limit is exceeded.
func (l *callLimiter) Increment() error {
	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max consecutive model calls: %d", l.max)
	}
	return nil
}

// Reset starts a new episode.
func (l *callLimiter) Reset() { l.count = 0 }

// Count returns the calls made in the current episode.
func (l *callLimiter) Count() int { return l.count }

// Remaining returns how many calls are left, or -1 when unlimited.
func (l *callLimiter) Remaining() int {
	if l.max == 0 {
		return -1
	}
	if r := l.max - l.count; r > 0 {
		return r
	}
	return 0
}
