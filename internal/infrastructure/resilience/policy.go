package resilience

import "time"

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// Profile names the dependency an executor guards.
type Profile string

const (
	ProfileEmbedding  Profile = "embedding"
	ProfileGeneration Profile = "generation"
	ProfileQueue      Profile = "queue"
)

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// ForProfile returns the baseline policy for a dependency. Generation is
// never retried: a failed answer degrades the search response instead.
func ForProfile(p Profile) Config {
	cfg := DefaultConfig()
	switch p {
	case ProfileGeneration:
		cfg.RetryMaxAttempts = 1
		cfg.BreakerMinRequests = 5
		cfg.BreakerOpenTimeout = 60 * time.Second
	case ProfileQueue:
		cfg.RetryMaxBackoff = time.Second
		cfg.BreakerMinRequests = 5
		cfg.BreakerHalfOpenMaxCalls = 1
	}
	return cfg
}

// Overrides carries operator settings. Zero values keep the profile value,
// except BreakerEnabled which always applies.
type Overrides struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	BreakerEnabled      bool
	BreakerOpenTimeout  time.Duration
}

// WithOverrides applies o on top of c. A profile with retries disabled stays
// disabled.
func (c Config) WithOverrides(o Overrides) Config {
	if o.RetryMaxAttempts > 0 && c.RetryMaxAttempts > 1 {
		c.RetryMaxAttempts = o.RetryMaxAttempts
	}
	if o.RetryInitialBackoff > 0 {
		c.RetryInitialBackoff = o.RetryInitialBackoff
	}
	if o.RetryMaxBackoff > 0 {
		c.RetryMaxBackoff = o.RetryMaxBackoff
	}
	if o.RetryMultiplier >= 1 {
		c.RetryMultiplier = o.RetryMultiplier
	}
	if o.BreakerOpenTimeout > 0 {
		c.BreakerOpenTimeout = o.BreakerOpenTimeout
	}
	c.BreakerEnabled = o.BreakerEnabled
	return c
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = def.RetryMaxBackoff
	}
	c.RetryMaxBackoff = max(c.RetryMaxBackoff, c.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return c
}
