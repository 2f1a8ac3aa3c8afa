package resilience

import (
	"math/rand/v2"
	"time"
)

// Backoff computes exponential reconnect delays: Initial, 2x, 4x ... capped at
// Max. Jitter spreads reconnects of many viewers after a shared outage.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial: time.Second,
		Max:     30 * time.Second,
		Jitter:  0.2,
	}
}

// Delay returns the wait before the given zero-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := initial
	for i := 0; i < attempt && delay < maxDelay; i++ {
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	if b.Jitter > 0 {
		spread := float64(delay) * b.Jitter
		delay = time.Duration(float64(delay) - spread + rand.Float64()*2*spread)
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return delay
}
