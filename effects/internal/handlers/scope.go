package handlers

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// effectScope ties a dispatcher to the teardown of the handler that owns it.
// Close may be called more than once; only the first call tears down.
type effectScope[T any] struct {
	EffectId   string
	dispatcher WorkerDispatcher[T]
	closeFn    func()
	closeOnce  sync.Once
}

func (es *effectScope[T]) Close() {
	es.closeOnce.Do(func() {
		es.closeFn()
		zap.L().Debug("effect scope closed", zap.String("effectId", es.EffectId))
	})
}

func newEffectScope[T any](
	dispatcher WorkerDispatcher[T],
	teardown func(),
) *effectScope[T] {
	return &effectScope[T]{
		EffectId:   uuid.New().String(),
		dispatcher: dispatcher,
		closeFn:    teardown,
	}
}
