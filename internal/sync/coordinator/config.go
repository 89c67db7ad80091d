package coordinator

import (
	"math/rand/v2"
	"time"
)

const (
	// defaultInterval applies in watch mode when no interval is configured
	defaultInterval = time.Hour

	// jitterFraction is the maximum relative offset applied to every interval
	jitterFraction = 0.05
)

// withJitter returns interval shifted by a random offset of at most ±5%
func withJitter(interval time.Duration) time.Duration {
	maxJitter := int64(float64(interval) * jitterFraction)
	if maxJitter <= 0 {
		return interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for scheduling jitter
	offset := time.Duration(rand.Int64N(2*maxJitter)) - time.Duration(maxJitter)
	return interval + offset
}
