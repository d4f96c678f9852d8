package heap

import ffibridge "github.com/wippyai/ffi-bridge"

// EventType identifies an allocation lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event represents an allocation lifecycle event.
type Event struct {
	Value any
	Addr  ffibridge.Addr
	Type  EventType
}

// Observer receives notifications about allocation lifecycle events.
type Observer interface {
	OnHeapEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnHeapEvent calls f(e).
func (f ObserverFunc) OnHeapEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when their
// allocation is released.
type Dropper interface {
	Drop()
}
