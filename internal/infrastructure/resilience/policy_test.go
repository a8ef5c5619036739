package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForProfile(t *testing.T) {
	assert.Equal(t, 3, ForProfile(ProfileEmbedding).RetryMaxAttempts)
	assert.Equal(t, 1, ForProfile(ProfileGeneration).RetryMaxAttempts)
	assert.Equal(t, time.Second, ForProfile(ProfileQueue).RetryMaxBackoff)
}

func TestWithOverrides(t *testing.T) {
	o := Overrides{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: 50 * time.Millisecond,
		BreakerEnabled:      false,
		BreakerOpenTimeout:  5 * time.Second,
	}

	embed := ForProfile(ProfileEmbedding).WithOverrides(o)
	assert.Equal(t, 5, embed.RetryMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, embed.RetryInitialBackoff)
	assert.Equal(t, 400*time.Millisecond, embed.RetryMaxBackoff)
	assert.False(t, embed.BreakerEnabled)
	assert.Equal(t, 5*time.Second, embed.BreakerOpenTimeout)

	gen := ForProfile(ProfileGeneration).WithOverrides(o)
	assert.Equal(t, 1, gen.RetryMaxAttempts)
}

func TestNormalizeClampsBackoff(t *testing.T) {
	cfg := Config{RetryInitialBackoff: time.Second, RetryMaxBackoff: 10 * time.Millisecond}.normalize()
	assert.Equal(t, time.Second, cfg.RetryMaxBackoff)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 0.5, cfg.BreakerFailureRatio)
}
