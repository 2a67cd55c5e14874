package mailbox

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// gate enforces a minimum spacing between outbound requests for one
// external account. Mailbox providers throttle per mailbox, so the
// gate is owned by the client, not shared process-wide.
type gate struct {
	last     time.Time
	interval time.Duration
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	mu       sync.Mutex
}

func newGate(interval time.Duration) *gate {
	return &gate{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// wait blocks until the spacing since the previous request has
// elapsed, or the context is canceled.
func (g *gate) wait(ctx context.Context) error {
	if g.interval <= 0 {
		return nil
	}

	g.mu.Lock()
	now := g.now()
	next := g.last.Add(g.interval)
	if next.Before(now) {
		next = now
	}
	g.last = next
	g.mu.Unlock()

	if d := next.Sub(now); d > 0 {
		if err := g.sleep(ctx, d); err != nil {
			return fmt.Errorf("rate gate canceled: %w", err)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
