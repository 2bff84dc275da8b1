package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(503, 30*time.Millisecond)
	c.Record(429, 2*time.Millisecond)
	c.BreakdownComputed(0)
	c.BreakdownComputed(2)
	c.PayrollRecomputed()

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.Equal(t, uint64(42), snap["totalDurationMs"])
	assert.InDelta(t, 14.0, snap["avgDurationMs"], 0.001)
	assert.Equal(t, uint64(2), snap["breakdownsTotal"])
	assert.Equal(t, uint64(2), snap["formulaFallbacksTotal"])
	assert.Equal(t, uint64(1), snap["payrollRecomputesTotal"])
}

func TestCollectorConcurrentUse(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(200, time.Millisecond)
			c.BreakdownComputed(1)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, uint64(50), snap["requestsTotal"])
	assert.Equal(t, uint64(50), snap["formulaFallbacksTotal"])
}
