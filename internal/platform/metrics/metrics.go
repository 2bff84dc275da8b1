package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-lifetime counters for the HTTP layer and the CTC
// engine. All methods are safe for concurrent use.
type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64

	breakdowns        atomic.Uint64
	formulaFallbacks  atomic.Uint64
	payrollRecomputes atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	if status == 429 {
		c.rateLimited.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

// BreakdownComputed counts one rule-table evaluation and the components in it
// whose formula failed and counted as zero.
func (c *Collector) BreakdownComputed(fallbacks int) {
	c.breakdowns.Add(1)
	if fallbacks > 0 {
		c.formulaFallbacks.Add(uint64(fallbacks))
	}
}

func (c *Collector) PayrollRecomputed() {
	c.payrollRecomputes.Add(1)
}

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":          total,
		"errorsTotal":            c.errorRequests.Load(),
		"rateLimitedTotal":       c.rateLimited.Load(),
		"avgDurationMs":          avg,
		"totalDurationMs":        totalMs,
		"breakdownsTotal":        c.breakdowns.Load(),
		"formulaFallbacksTotal":  c.formulaFallbacks.Load(),
		"payrollRecomputesTotal": c.payrollRecomputes.Load(),
	}
}
