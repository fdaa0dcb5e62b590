package insights

import (
	"fmt"
	"time"

	"cadence/internal/cache"
	"cadence/internal/jobs"
)

// QuotaGuard enforces per-minute and per-day caps on the insight generation
// capability. Counters live in the process-local TTL cache, so the caps are
// per worker process; the external provider's own limits remain the hard
// backstop.
type QuotaGuard struct {
	cache     *cache.Cache
	perMinute int
	perDay    int
}

func NewQuotaGuard(c *cache.Cache, perMinute, perDay int) *QuotaGuard {
	return &QuotaGuard{cache: c, perMinute: perMinute, perDay: perDay}
}

// Allow consumes one unit of quota for the capability. Returns a
// QuotaExhaustedError when either window is full.
func (g *QuotaGuard) Allow(capability string) error {
	if g.perDay > 0 {
		day := g.cache.Increment(fmt.Sprintf("quota:%s:day", capability), 24*time.Hour)
		if day > g.perDay {
			fmt.Printf("[QUOTA] Daily cap reached for %s (%d/%d)\n", capability, day, g.perDay)
			return &jobs.QuotaExhaustedError{Capability: capability}
		}
	}
	if g.perMinute > 0 {
		minute := g.cache.Increment(fmt.Sprintf("quota:%s:minute", capability), time.Minute)
		if minute > g.perMinute {
			fmt.Printf("[QUOTA] Per-minute cap reached for %s (%d/%d)\n", capability, minute, g.perMinute)
			return &jobs.QuotaExhaustedError{Capability: capability}
		}
	}
	return nil
}
