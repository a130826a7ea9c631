// Package packetcounter counts messages per kind in time buckets.
package packetcounter

import (
	"slices"
	"sync"
	"time"
)

// Counter aggregates counts per kind into buckets of a fixed granularity.
// Whenever a bucket is complete do is called once per kind seen in it.
//
// A Counter is safe for concurrent use. do is called with the Counter
// locked, it must not call back into the Counter.
type Counter struct {
	mu  sync.Mutex
	t   time.Time
	cnt map[string]uint
	// gets called every time t is updated
	do func(t time.Time, kind string, cnt uint)
	// duration of the "buckets" to form
	granularity time.Duration
	now         func() time.Time
}

func NewCounter(do func(t time.Time, kind string, cnt uint), granularity time.Duration) *Counter {
	return NewCounterWithClock(do, granularity, time.Now)
}

func NewCounterWithClock(do func(t time.Time, kind string, cnt uint), granularity time.Duration, now func() time.Time) *Counter {
	return &Counter{
		cnt:         make(map[string]uint),
		do:          do,
		granularity: granularity,
		now:         now,
	}
}

func (counter *Counter) Add(kind string, i uint) {
	counter.mu.Lock()
	defer counter.mu.Unlock()

	now := counter.now().Truncate(counter.granularity)
	if !now.Equal(counter.t) {
		counter.flush()
		counter.t = now
	}
	counter.cnt[kind] += i
}

// Finalize reports the current bucket. Counting may continue afterwards.
func (counter *Counter) Finalize() {
	counter.mu.Lock()
	defer counter.mu.Unlock()
	counter.flush()
}

// kinds are reported sorted, the map order would make the output random
func (counter *Counter) flush() {
	if counter.t.IsZero() {
		return
	}
	kinds := make([]string, 0, len(counter.cnt))
	for k := range counter.cnt {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		counter.do(counter.t, k, counter.cnt[k])
	}
	clear(counter.cnt)
}
