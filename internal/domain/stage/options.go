package stage

import (
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// DefaultDebounce is the autosave delay.
const DefaultDebounce = 600 * time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the autosave delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithRules sets the stage completion thresholds.
func WithRules(rules project.Rules) Option {
	return func(c *Controller) { c.rules = rules }
}

// WithAfterFunc replaces time.AfterFunc, mainly for tests.
func WithAfterFunc(after AfterFunc) Option {
	return func(c *Controller) {
		if after != nil {
			c.after = after
		}
	}
}

// WithClock sets the time source used for completedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
