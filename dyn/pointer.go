package dyn

import (
	"reflect"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/fnptr"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/contract"
	"github.com/wippyai/ffi-bridge/internal/invoke"
)

// VirtualPointer is a two-word reference to an object of erased type: its
// data address and the vtable that dispatches on it.
type VirtualPointer struct {
	VTable *VTable
	Data   ffibridge.Addr
}

// Raw is the foreign-visible form of a virtual pointer.
type Raw struct {
	Data   ffibridge.Addr
	VTable ffibridge.Addr
}

// Raw returns the pointer's two foreign words.
func (p VirtualPointer) Raw() Raw {
	if p.VTable == nil {
		return Raw{Data: p.Data}
	}
	return Raw{Data: p.Data, VTable: p.VTable.addr}
}

// FromRaw resolves a foreign virtual pointer.
func FromRaw(r Raw) (VirtualPointer, error) {
	vt, ok := heap.Typed[*VTable](heap.Default, r.VTable)
	if !ok {
		return VirtualPointer{}, errors.NilPointer(errors.PhaseLift, []string{"vtable"}, "dyn.Raw")
	}
	if r.Data.IsNull() {
		return VirtualPointer{}, errors.NilPointer(errors.PhaseLift, []string{"ptr"}, "dyn.Raw")
	}
	return VirtualPointer{Data: r.Data, VTable: vt}, nil
}

// IsNull reports whether p refers to nothing.
func (p VirtualPointer) IsNull() bool {
	return p.VTable == nil || p.Data.IsNull()
}

// Live reports whether p's data is still allocated.
func (p VirtualPointer) Live() bool {
	return !p.IsNull() && heap.Default.Live(p.Data)
}

// Call dispatches the method named method. Argument and liveness problems
// are returned as errors.
func (p VirtualPointer) Call(method string, args ...any) (any, error) {
	if p.IsNull() {
		return nil, errors.NilPointer(errors.PhaseCall, []string{method}, "dyn.VirtualPointer")
	}
	slot, ok := p.VTable.Method(method)
	if !ok {
		return nil, errors.New(errors.PhaseCall, errors.KindNotFound).
			Path(method).
			GoType(p.VTable.concrete.String()).
			Detail("no method %q in [%s]", method, capNames(p.VTable.caps, ", ")).
			Build()
	}
	if !heap.Default.Live(p.Data) {
		return nil, errors.New(errors.PhaseCall, errors.KindUseAfterRelease).
			Path(method).
			GoType(p.VTable.concrete.String()).
			Detail("data %#x is no longer live", uint64(p.Data)).
			Build()
	}
	if _, err := invoke.Args(p.VTable.types[slot], 0, args); err != nil {
		return nil, err
	}
	return p.Invoke(slot, args...), nil
}

// Invoke calls slot directly, the way foreign code does. Invoking a
// lifecycle slot with arguments, an out-of-range slot or a released
// object is a contract violation.
func (p VirtualPointer) Invoke(slot int, args ...any) any {
	if p.VTable == nil {
		contract.Violation(errors.KindNilPointer, "invoke through a null vtable")
		return nil
	}
	if contract.Checked {
		if slot < p.VTable.ownership.headerSlots() || slot >= len(p.VTable.slots) {
			contract.Violation(errors.KindOutOfBounds, "slot %d out of range for %s", slot, p.VTable.concrete)
		}
		if !heap.Default.Live(p.Data) {
			contract.Violation(errors.KindUseAfterRelease, "virtual pointer %#x used after release", uint64(p.Data))
		}
	}
	return fnptr.Call[SlotFn](fnptr.Default, p.VTable.slots[slot])(p.Data, args)
}

// Upcast views p through a prefix of its capability set. The data is
// shared; ownership does not change.
func (p VirtualPointer) Upcast(caps ...*Capability) (VirtualPointer, error) {
	if p.VTable == nil {
		return VirtualPointer{}, errors.NilPointer(errors.PhaseCall, nil, "dyn.VirtualPointer")
	}
	vt, err := p.VTable.Upcast(caps...)
	if err != nil {
		return VirtualPointer{}, err
	}
	return VirtualPointer{Data: p.Data, VTable: vt}, nil
}

// Retain adds a holder to a shared pointer and returns the new holder's
// copy.
func (p VirtualPointer) Retain() (VirtualPointer, error) {
	if p.VTable == nil || p.VTable.ownership != Shared {
		return VirtualPointer{}, errors.New(errors.PhaseCall, errors.KindUnsupported).
			Detail("only shared virtual pointers can be retained").
			Build()
	}
	fnptr.Call[LifecycleFn](fnptr.Default, p.VTable.slots[1])(p.Data)
	return p, nil
}

// Release gives up this holder's reference through the vtable's release
// slot. Owned pointers run drop glue, borrowed pointers do nothing and
// shared pointers free the object with the last holder.
func (p VirtualPointer) Release() {
	if p.VTable == nil {
		contract.Violation(errors.KindNilPointer, "release through a null vtable")
		return
	}
	fnptr.Call[LifecycleFn](fnptr.Default, p.VTable.slots[0])(p.Data)
}

// Box moves v behind an owned virtual pointer.
func (r *Registry) Box(v any, caps ...*Capability) (VirtualPointer, error) {
	return r.pointer(v, Owned, caps, false)
}

// Share places v behind a shared virtual pointer with one holder.
func (r *Registry) Share(v any, caps ...*Capability) (VirtualPointer, error) {
	return r.pointer(v, Shared, caps, false)
}

// Borrow lends v to fn through a borrowed virtual pointer. The pointer is
// valid only while fn runs; releasing it drops nothing.
func (r *Registry) Borrow(v any, caps []*Capability, fn func(VirtualPointer)) error {
	p, err := r.pointer(v, Borrowed, caps, true)
	if err != nil {
		return err
	}
	defer heap.Default.Free(p.Data)
	fn(p)
	return nil
}

func (r *Registry) pointer(v any, own Ownership, caps []*Capability, borrowed bool) (VirtualPointer, error) {
	if v == nil {
		return VirtualPointer{}, errors.NilPointer(errors.PhaseLower, nil, "dyn")
	}
	value := reflect.ValueOf(v)
	vt, err := r.VTable(value.Type(), own, caps...)
	if err != nil {
		return VirtualPointer{}, err
	}
	obj := &object{value: value, borrowed: borrowed}
	obj.count.Store(1)
	return VirtualPointer{Data: heap.Default.Alloc(obj), VTable: vt}, nil
}

// Box moves v behind an owned virtual pointer using the Default registry.
func Box(v any, caps ...*Capability) (VirtualPointer, error) {
	return Default.Box(v, caps...)
}

// Share places v behind a shared virtual pointer using the Default
// registry.
func Share(v any, caps ...*Capability) (VirtualPointer, error) {
	return Default.Share(v, caps...)
}

// Borrow lends v to fn using the Default registry.
func Borrow(v any, caps []*Capability, fn func(VirtualPointer)) error {
	return Default.Borrow(v, caps, fn)
}

// Value returns the Go value behind p.
func (p VirtualPointer) Value() (any, bool) {
	obj, ok := heap.Typed[*object](heap.Default, p.Data)
	if !ok {
		return nil, false
	}
	return obj.value.Interface(), true
}
