// Package retry provides the per-stream attempt backoff policy.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff parameters. Delays double from one second up to the cap, with a
// uniform ±10% randomization so streams retrying at the same moment do not
// reconnect in lockstep.
const (
	initialInterval     = 1 * time.Second
	maxInterval         = 30 * time.Second
	multiplier          = 2
	randomizationFactor = 0.1
)

// NewBackOff returns the backoff used between attempts of a single stream.
// The caller owns the retry budget; the backoff itself never stops, so
// MaxElapsedTime is disabled.
func NewBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxInterval = maxInterval
	b.Multiplier = multiplier
	b.RandomizationFactor = randomizationFactor
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
