package lang

import (
	"github.com/ardnew/xtera/log"
)

// DefaultMaxDepth is the default bound on nested @include expansions.
const DefaultMaxDepth = 64

// config holds parse and render options.
type config struct {
	logger   log.Logger
	name     string
	maxDepth int
}

// Option configures parsing or rendering.
// Options that do not apply to an operation are ignored by it.
type Option func(*config)

// WithName sets the template name reported in error locations.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithMaxDepth sets the maximum number of nested @include expansions.
// Values less than 1 select [DefaultMaxDepth].
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func makeConfig(opts ...Option) config {
	c := config{maxDepth: DefaultMaxDepth}

	for _, opt := range opts {
		opt(&c)
	}

	if c.maxDepth < 1 {
		c.maxDepth = DefaultMaxDepth
	}

	return c
}
