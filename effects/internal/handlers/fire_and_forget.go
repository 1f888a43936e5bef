package handlers

import (
	"context"
)

// NewFireAndForgetHandler starts a single worker for handleFn. Closing the handler
// stops intake, lets the worker finish what was already queued and then runs
// teardown.
func NewFireAndForgetHandler[P any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, P),
	teardown func(),
) FireAndForgetHandler[P] {
	ctx, cancelFn := context.WithCancel(ctx)
	dispatcher := NewSingleQueue(ctx, bufferSize, handleFn)
	return FireAndForgetHandler[P]{
		effectScope: newEffectScope(
			dispatcher,
			func() {
				cancelFn()
				<-dispatcher.Done()
				teardown()
			},
		),
	}
}

type FireAndForgetHandler[P any] struct {
	*effectScope[P]
}

// FireAndForgetEffect queues the payload for the handler's worker.
// It reports false when ctx was done first or the handler is already closing.
func (ffh FireAndForgetHandler[P]) FireAndForgetEffect(ctx context.Context, payload P) (queued bool) {
	return ffh.dispatcher.Dispatch(ctx, payload)
}
