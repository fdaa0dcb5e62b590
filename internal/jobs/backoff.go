package jobs

import (
	"math/rand"
	"time"
)

const (
	backoffBase = 30 * time.Second
	backoffCap  = time.Hour

	// QuotaBackoffMin is the minimum delay after a quota denial
	QuotaBackoffMin = 5 * time.Minute
)

// Backoff computes the retry delay for a given attempt count:
// min(base * 2^attempts + jitter, cap). It is a pure function of its inputs
// (plus bounded jitter) and the result is stored on the job row itself, so
// there is no process-global retry state to break under multiple workers.
func Backoff(attempts int, minimum time.Duration) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 16 {
		attempts = 16 // 2^16 * base already exceeds any sensible cap
	}

	delay := backoffBase * (1 << uint(attempts))
	delay += time.Duration(rand.Int63n(int64(10 * time.Second)))

	if delay > backoffCap {
		delay = backoffCap
	}
	if delay < minimum {
		delay = minimum
	}
	return delay
}
