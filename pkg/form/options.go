package form

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAsyncTimeout bounds each asynchronous check unless overridden.
const DefaultAsyncTimeout = 10 * time.Second

// Option configures a Controller.
type Option func(*Controller)

// WithMode sets the validation mode used before the first submit.
func WithMode(mode Mode) Option {
	return func(c *Controller) {
		c.mode = mode
	}
}

// WithReValidateMode sets the validation mode used after the first submit.
func WithReValidateMode(mode Mode) Option {
	return func(c *Controller) {
		c.reValidateMode = mode
	}
}

// WithLogger routes controller diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAsyncTimeout bounds each asynchronous check. Zero disables the bound.
func WithAsyncTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.asyncTimeout = d
		}
	}
}

// WithIDGenerator overrides how list entry identity tokens are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithClock overrides the time source stamped on watch events.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func defaultIDGenerator() string {
	return uuid.NewString()
}
