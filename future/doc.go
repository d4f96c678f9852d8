// Package future exports asynchronous host computations to foreign code
// as pollable virtual pointers.
//
// A Future is polled with a Context holding the foreign waker, a shared
// closure. A pending future keeps a Waker and wakes it once it can make
// progress; the foreign side polls again only after that. A ready poll
// carries the result by value in a PollResult.
//
//	vp, _ := future.Export(future.Go(ctx, compute))
//	defer vp.Release()
//	v, err := future.Block[uint32](ctx, vp)
//
// Releasing the exported pointer before completion cancels the future.
// There are no timeouts; callers layer them on with contexts. One future
// has one poller at a time, and checked builds report concurrent polls as
// contract violations.
package future
