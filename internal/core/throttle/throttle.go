// Package throttle paces sequential calls to the generation service.
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next call may start.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Every returns a token bucket with burst 1: the first Wait passes at once,
// later ones are spaced by interval. A non-positive interval never blocks.
func Every(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Each runs fn for every index in order, waiting on lim before each call.
// A failing fn does not stop the loop; only a Wait error does.
func Each(ctx context.Context, lim Limiter, n int, fn func(i int)) error {
	for i := 0; i < n; i++ {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		fn(i)
	}
	return nil
}
