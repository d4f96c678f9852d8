package future

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/closure"
	"github.com/wippyai/ffi-bridge/dyn"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/contract"
	"github.com/wippyai/ffi-bridge/repr"
)

// Poller is the single capability of an exported future. Foreign code
// calls Poll with its waker and polls again only after being woken.
type Poller[T any] interface {
	Poll(waker closure.SharedRecord) PollResult[T]
}

// Capability returns the poll capability for futures of T, named
// Future_<T>.
func Capability[T any]() (*dyn.Capability, error) {
	return dyn.CapabilityNamed[Poller[T]]("Future_" + repr.IdentOf(reflect.TypeFor[T]()))
}

// exported adapts a Future to the Poller capability and enforces the
// single-poller discipline.
type exported[T any] struct {
	inner   Future[T]
	result  PollResult[T]
	polling atomic.Bool
}

func (e *exported[T]) Poll(waker closure.SharedRecord) PollResult[T] {
	if !e.polling.CompareAndSwap(false, true) {
		if contract.Checked {
			contract.Violation(errors.KindConcurrentPoll, "future polled concurrently")
		}
	} else {
		defer e.polling.Store(false)
	}

	if e.result.IsReady() {
		return e.result
	}
	r := e.inner.Poll(NewContext(waker))
	if r.IsReady() {
		e.result = r
	}
	return r
}

// Drop cancels the inner future when it supports cancellation.
func (e *exported[T]) Drop() {
	if d, ok := e.inner.(heap.Dropper); ok {
		d.Drop()
	}
	Logger().Debug("future released", zap.Bool("completed", e.result.IsReady()))
}

// Export moves f behind an owned virtual pointer whose only capability is
// Poller[T]. Releasing the pointer cancels f.
func Export[T any](f Future[T]) (dyn.VirtualPointer, error) {
	capability, err := Capability[T]()
	if err != nil {
		return dyn.VirtualPointer{}, err
	}
	vp, err := dyn.Box(&exported[T]{inner: f}, capability)
	if err != nil {
		return dyn.VirtualPointer{}, err
	}
	Logger().Debug("future exported",
		zap.String("capability", capability.Name),
		zap.Uint64("data", uint64(vp.Data)))
	return vp, nil
}

// Block drives an exported future the way a foreign caller does: poll,
// wait for the waker, poll again. It returns ctx's error if ctx ends
// first. Block does not release vp.
func Block[T any](ctx context.Context, vp dyn.VirtualPointer) (T, error) {
	var zero T

	woken := make(chan struct{}, 1)
	waker, err := closure.NewShared(func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return zero, err
	}
	defer waker.Release()

	for {
		out, err := vp.Call("Poll", waker.Record())
		if err != nil {
			return zero, err
		}
		r, ok := out.(PollResult[T])
		if !ok {
			return zero, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
				GoType(fmt.Sprintf("%T", out)).
				ReprType(PollResult[T]{}.ReprName()).
				Detail("poll returned an unexpected result").
				Build()
		}
		if r.IsReady() {
			return r.Value, nil
		}

		select {
		case <-woken:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
