package future

import (
	"context"
	"sync"
)

type readyFuture[T any] struct {
	value T
}

// Ready returns a future that is ready on its first poll.
func Ready[T any](v T) Future[T] {
	return readyFuture[T]{value: v}
}

func (f readyFuture[T]) Poll(*Context) PollResult[T] {
	return Done(f.value)
}

// PollFunc adapts a poll function to a Future. State between polls lives
// in whatever fn closes over.
type PollFunc[T any] func(cx *Context) PollResult[T]

// Poll calls f.
func (f PollFunc[T]) Poll(cx *Context) PollResult[T] {
	return f(cx)
}

// goFuture runs its computation on a goroutine and wakes the last poller
// when it finishes.
type goFuture[T any] struct {
	cancel context.CancelFunc
	waker  Waker
	value  T
	mu     sync.Mutex
	done   bool
}

// Go starts fn on a new goroutine and returns a future of its result. The
// context passed to fn is cancelled when the future is dropped.
func Go[T any](ctx context.Context, fn func(ctx context.Context) T) Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &goFuture[T]{cancel: cancel}
	go func() {
		v := fn(ctx)

		f.mu.Lock()
		f.value = v
		f.done = true
		w := f.waker
		f.waker = Waker{}
		f.mu.Unlock()

		w.Wake()
		w.Drop()
	}()
	return f
}

func (f *goFuture[T]) Poll(cx *Context) PollResult[T] {
	f.mu.Lock()
	if f.done {
		v := f.value
		f.mu.Unlock()
		return Done(v)
	}
	old := f.waker
	f.waker = cx.Waker()
	f.mu.Unlock()

	old.Drop()
	return Pending[T]()
}

// Drop cancels the computation and releases the stored waker.
func (f *goFuture[T]) Drop() {
	f.cancel()

	f.mu.Lock()
	w := f.waker
	f.waker = Waker{}
	f.mu.Unlock()

	w.Drop()
}
