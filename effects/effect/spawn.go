package effect

import (
	"context"

	"github.com/on-the-ground/effect_ive_store/effects/concurrency"
)

// spawn runs fn asynchronously. With a concurrency handler in ctx fn becomes a
// supervised child and is also cancelled when the supervisor cancels its children;
// without one it gets a plain goroutine.
func spawn(ctx context.Context, fn func(context.Context)) {
	queued := concurrency.TryEffect(ctx, func(childCtx context.Context) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(childCtx, cancel)
		defer stop()
		fn(runCtx)
	})
	if !queued {
		go fn(ctx)
	}
}
