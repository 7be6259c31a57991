package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often expired entries are purged.
const DefaultSweepInterval = time.Second

// Sweeper periodically removes expired entries from a Store, bounding memory
// for keys that are written and never read again. Each pass is one exclusive
// lock acquisition and costs O(entries held).
type Sweeper struct {
	store    *Store
	interval time.Duration
	reset    chan time.Duration
}

// NewSweeper creates a Sweeper for st. A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(st *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    st,
		interval: interval,
		reset:    make(chan time.Duration, 1),
	}
}

// Sweep runs one pass at now and returns the number of entries removed.
func (w *Sweeper) Sweep(now time.Time) int {
	n := w.store.Evict(now)
	if n > 0 {
		slog.Debug("sweeper: evicted expired keys", "count", n)
	}
	return n
}

// SetInterval changes the tick period of a running sweeper. The latest value
// wins if several changes arrive before the loop picks them up.
func (w *Sweeper) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	for {
		select {
		case w.reset <- d:
			return
		default:
		}
		select {
		case <-w.reset:
		default:
		}
	}
}

// Run sweeps every interval until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-w.reset:
			w.interval = d
			t.Reset(d)
			slog.Info("sweeper: interval changed", "interval", d)
		case now := <-t.C:
			w.Sweep(now)
		}
	}
}

// RunTicks sweeps once per value received on ticks until ticks is closed or
// ctx is cancelled. It returns the number of passes made.
func (w *Sweeper) RunTicks(ctx context.Context, ticks <-chan time.Time) int {
	passes := 0
	for {
		select {
		case <-ctx.Done():
			return passes
		case now, ok := <-ticks:
			if !ok {
				return passes
			}
			w.Sweep(now)
			passes++
		}
	}
}
