package sim

import (
	"sync"
	"time"
)

// Interval is a handle to a running repeating timer.
type Interval interface {
	Stop()
}

// IntervalRunner starts repeating timers. The production implementation runs
// on time.Ticker; tests substitute a runner whose ticks are driven by hand.
type IntervalRunner interface {
	Start(d time.Duration, fn func()) Interval
}

// TickerRunner is the real-time IntervalRunner.
type TickerRunner struct{}

func (TickerRunner) Start(d time.Duration, fn func()) Interval {
	iv := &tickerInterval{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-iv.ticker.C:
				fn()
			case <-iv.done:
				return
			}
		}
	}()
	return iv
}

type tickerInterval struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// Stop halts the interval. Safe to call more than once; after Stop returns
// no further callback will be started.
func (iv *tickerInterval) Stop() {
	iv.once.Do(func() {
		iv.ticker.Stop()
		close(iv.done)
	})
}
