package future

import (
	"reflect"

	"github.com/wippyai/ffi-bridge/closure"
	"github.com/wippyai/ffi-bridge/repr"
)

// PollStatus is the outcome of one poll.
type PollStatus uint8

const (
	StatusPending PollStatus = iota
	StatusReady
)

// EnumCases implements repr.Enum.
func (PollStatus) EnumCases() []string {
	return []string{"Pending", "Ready"}
}

func (s PollStatus) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "pending"
}

// PollResult is what a poll returns across the boundary. Value is
// meaningful only when Status is StatusReady.
type PollResult[T any] struct {
	Status PollStatus
	Value  T
}

// ReprName implements repr.Named.
func (PollResult[T]) ReprName() string {
	return "PollResult_" + repr.IdentOf(reflect.TypeFor[T]())
}

// Pending is the pending poll result.
func Pending[T any]() PollResult[T] {
	return PollResult[T]{Status: StatusPending}
}

// Done is a ready poll result carrying v.
func Done[T any](v T) PollResult[T] {
	return PollResult[T]{Status: StatusReady, Value: v}
}

// IsReady reports whether r carries a value.
func (r PollResult[T]) IsReady() bool {
	return r.Status == StatusReady
}

// Future is a host computation driven by polls. Poll must not block. A
// future that returns pending arranges for cx's waker to be woken when it
// can make progress.
type Future[T any] interface {
	Poll(cx *Context) PollResult[T]
}

// Context carries the waker of the poll in progress.
type Context struct {
	waker closure.SharedRecord
}

// NewContext wraps a foreign waker. The context does not own it.
func NewContext(waker closure.SharedRecord) *Context {
	return &Context{waker: waker}
}

// Waker returns a new holder of the poll's waker. The caller must Drop it.
func (c *Context) Waker() Waker {
	if c.waker.Env.IsNull() {
		return Waker{}
	}
	return Waker{rec: c.waker.Clone()}
}

// Waker is one holder of a foreign wake callback.
type Waker struct {
	rec closure.SharedRecord
}

// Wake asks the foreign side to poll again. It does not consume w.
func (w Waker) Wake() {
	if w.rec.Env.IsNull() {
		return
	}
	w.rec.Invoke()
}

// Drop releases this holder.
func (w Waker) Drop() {
	if w.rec.Env.IsNull() {
		return
	}
	w.rec.Free()
}

// IsNoop reports whether w wakes nothing.
func (w Waker) IsNoop() bool {
	return w.rec.Env.IsNull()
}
