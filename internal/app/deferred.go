package app

import (
	"context"
	"time"
)

// After runs fn once d has elapsed unless ctx is cancelled first. fn receives
// ctx so it can re-check cancellation after acquiring its own locks.
func After(ctx context.Context, d time.Duration, fn func(context.Context)) {
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			fn(ctx)
		}
	}()
}
