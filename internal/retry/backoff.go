// Package retry provides the capped exponential backoff used when the RPC
// endpoint misbehaves transiently.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes jittered exponential delays. The zero value is not usable;
// construct with Exponential.
type Backoff struct {
	// InitialDelay is the delay after the first failure.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// Multiplier is the growth factor between attempts. Defaults to 2.
	Multiplier float64

	// Jitter is the fraction of the delay randomized up or down, in [0,1).
	Jitter float64

	attempt int
}

// Exponential returns a backoff with the defaults used for RPC retries:
// 1s initial delay doubling up to 30s, with 20% jitter.
func Exponential() *Backoff {
	return &Backoff{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

// Next records a failure and returns the delay to wait before retrying.
func (b *Backoff) Next() time.Duration {
	b.attempt++

	multiplier := b.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	delay := float64(b.InitialDelay) * math.Pow(multiplier, float64(b.attempt-1))
	d := time.Duration(delay)
	if d > b.MaxDelay || d <= 0 {
		d = b.MaxDelay
	}

	if b.Jitter > 0 {
		spread := float64(d) * b.Jitter
		d += time.Duration(rand.Float64()*2*spread - spread)
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Reset clears the failure count after a successful attempt.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempts returns the number of consecutive failures recorded so far.
func (b *Backoff) Attempts() int {
	return b.attempt
}
