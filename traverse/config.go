package traverse

import "time"

// Config tunes one traversal run. Zero values are replaced by defaults
// where a zero makes no sense.
type Config struct {
	// Workers is the number of concurrent fetch workers.
	Workers int `yaml:"workers"`
	// MaxAttempts bounds fetch attempts per reference, including the
	// first one.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoff is the delay before the first retry. It doubles on
	// every further retry up to MaxBackoff.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	// PerOriginConcurrency caps in-flight fetches per host.
	PerOriginConcurrency int `yaml:"per_origin_concurrency"`
	// RequestDelay is the minimum time between two requests to the same
	// host. Zero disables the delay.
	RequestDelay time.Duration `yaml:"request_delay"`
	// MaxPagesPerCategory caps the pages fetched for one category. Zero
	// means unlimited.
	MaxPagesPerCategory int `yaml:"max_pages_per_category"`
}

// DefaultConfig returns settings that are polite to a single origin.
func DefaultConfig() Config {
	return Config{
		Workers:              4,
		MaxAttempts:          3,
		InitialBackoff:       500 * time.Millisecond,
		MaxBackoff:           10 * time.Second,
		PerOriginConcurrency: 2,
		RequestDelay:         250 * time.Millisecond,
	}
}

// withDefaults fills in unusable zero or negative values.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.Workers < 1 {
		c.Workers = def.Workers
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff < 0 {
		c.InitialBackoff = 0
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.PerOriginConcurrency < 1 {
		c.PerOriginConcurrency = c.Workers
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	if c.MaxPagesPerCategory < 0 {
		c.MaxPagesPerCategory = 0
	}

	return c
}
