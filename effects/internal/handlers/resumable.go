package handlers

import (
	"context"

	effectmodel "github.com/on-the-ground/effect_ive_store/effects/internal/model"
	"go.uber.org/zap"
)

func NewPartitionableResumableHandler[P effectmodel.Partitionable, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P) (R, error),
	teardown func(),
) ResumableHandler[P, R] {
	ctx, cancelFn := context.WithCancel(ctx)
	dispatcher := NewPartitionedQueue(
		ctx,
		config.NumWorkers,
		config.BufferSize,
		func(ctx context.Context, msg ResumableEffectMessage[P, R]) {
			defer close(msg.ResumeCh)
			if ctx.Err() != nil {
				// accepted before shutdown: the performer sees a closed channel
				return
			}
			msg.ResumeCh <- ResumableResultFrom(handleFn(ctx, msg.Payload))
		},
	)
	return ResumableHandler[P, R]{
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

type ResumableHandler[P effectmodel.Partitionable, R any] struct {
	*effectScope[ResumableEffectMessage[P, R]]
}

// PerformEffect hands the payload to the worker owning its partition and returns
// the channel the result will be delivered on.
func (rh ResumableHandler[P, R]) PerformEffect(ctx context.Context, payload P) <-chan ResumableResult[R] {
	// buffered so the worker never waits for the performer
	resumeCh := make(chan ResumableResult[R], 1)

	msg := ResumableEffectMessage[P, R]{
		Payload:  payload,
		ResumeCh: resumeCh,
	}
	if !rh.dispatcher.Dispatch(ctx, msg) {
		zap.L().Debug(
			"resumable effect not queued",
			zap.String("effectId", rh.EffectId),
			zap.Any("payload", payload),
		)
		close(resumeCh)
	}
	return resumeCh
}

// ResumableResult represents the result of handled effects.
type ResumableResult[T any] struct {
	Value T
	Err   error
}

func ResumableResultFrom[R any](res R, err error) ResumableResult[R] {
	return ResumableResult[R]{Value: res, Err: err}
}

var _ effectmodel.Partitionable = ResumableEffectMessage[effectmodel.Partitionable, any]{}

type ResumableEffectMessage[P effectmodel.Partitionable, R any] struct {
	Payload  P
	ResumeCh chan ResumableResult[R]
}

func (rem ResumableEffectMessage[P, R]) PartitionKey() string {
	return rem.Payload.PartitionKey()
}
