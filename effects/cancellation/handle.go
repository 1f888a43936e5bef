package cancellation

import "sync/atomic"

// Disposable is anything that can be torn down.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a plain function to Disposable.
type DisposableFunc func()

func (f DisposableFunc) Dispose() { f() }

// Handle is a disposal capability for one live subscription.
//
// Handles compare by pointer: two handles with equivalent dispose functions are
// still distinct members of a registry set. Dispose runs the dispose function at
// most once; concurrent and repeated calls return without running it again.
type Handle struct {
	disposed atomic.Bool
	dispose  func()
}

func NewHandle(dispose func()) *Handle {
	return &Handle{dispose: dispose}
}

func (h *Handle) Dispose() {
	if !h.disposed.CompareAndSwap(false, true) {
		return
	}
	if h.dispose != nil {
		h.dispose()
	}
}

func (h *Handle) Disposed() bool {
	return h.disposed.Load()
}

// Join bundles parts into one handle. Disposing it disposes every part in order and
// then calls onDisposed, exactly once however often the handle is disposed.
func Join(onDisposed func(), parts ...Disposable) *Handle {
	return NewHandle(func() {
		for _, part := range parts {
			if part != nil {
				part.Dispose()
			}
		}
		if onDisposed != nil {
			onDisposed()
		}
	})
}
