package dyn

import (
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/closure"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/fnptr"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/contract"
	"github.com/wippyai/ffi-bridge/internal/invoke"
)

// Ownership says how a virtual pointer holds its data.
type Ownership uint8

const (
	// Owned pointers release their data through drop glue.
	Owned Ownership = iota
	// Borrowed pointers never release anything.
	Borrowed
	// Shared pointers are reference counted through retain/release slots.
	Shared
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "Box"
	case Borrowed:
		return "Ref"
	default:
		return "Arc"
	}
}

// headerSlots returns the number of lifecycle slots that precede the
// capability methods.
func (o Ownership) headerSlots() int {
	if o == Shared {
		return 2
	}
	return 1
}

// SlotFn is the erased signature of a method slot.
type SlotFn = closure.CallFn

// LifecycleFn is the erased signature of release and retain slots.
type LifecycleFn = closure.EnvFn

// VTable is the dispatch table of one concrete type viewed through an
// ordered capability set with a given ownership: the lifecycle slots
// followed by each capability's methods in order. The table for a prefix of
// the capability set is a prefix of the slots.
type VTable struct {
	concrete  reflect.Type
	caps      []*Capability
	slots     []fnptr.Ptr
	types     []reflect.Type
	names     []string
	views     []*VTable
	addr      ffibridge.Addr
	ownership Ownership
}

// Concrete returns the Go type the table dispatches to.
func (v *VTable) Concrete() reflect.Type { return v.concrete }

// Ownership returns the table's ownership mode.
func (v *VTable) Ownership() Ownership { return v.ownership }

// Capabilities returns the ordered capability set.
func (v *VTable) Capabilities() []*Capability { return v.caps }

// Addr returns the table's foreign-visible address.
func (v *VTable) Addr() ffibridge.Addr { return v.addr }

// Len returns the number of slots, lifecycle slots included.
func (v *VTable) Len() int { return len(v.slots) }

// Slot returns the function pointer at index i.
func (v *VTable) Slot(i int) fnptr.Ptr { return v.slots[i] }

// SlotName returns the header name of slot i.
func (v *VTable) SlotName(i int) string { return v.names[i] }

// Method returns the slot index of the first method named name.
func (v *VTable) Method(name string) (int, bool) {
	slot := v.ownership.headerSlots()
	for _, c := range v.caps {
		for _, m := range c.Methods {
			if m.Name == name {
				return slot, true
			}
			slot++
		}
	}
	return 0, false
}

// Upcast returns the view of v restricted to caps, which must be a
// non-empty prefix of v's capability set.
func (v *VTable) Upcast(caps ...*Capability) (*VTable, error) {
	if len(caps) == 0 || len(caps) > len(v.caps) {
		return nil, v.notPrefix(caps)
	}
	for i, c := range caps {
		if v.caps[i] != c {
			return nil, v.notPrefix(caps)
		}
	}
	if len(caps) == len(v.caps) {
		return v, nil
	}
	return v.views[len(caps)-1], nil
}

func (v *VTable) notPrefix(caps []*Capability) error {
	return errors.New(errors.PhaseCall, errors.KindTypeMismatch).
		GoType(v.concrete.String()).
		Detail("[%s] is not a prefix of [%s]", capNames(caps, ", "), capNames(v.caps, ", ")).
		Build()
}

func capNames(caps []*Capability, sep string) string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.Name
	}
	return strings.Join(names, sep)
}

// Registry builds and caches vtables. Each (concrete type, ownership,
// capability set) gets exactly one table for the life of the registry.
type Registry struct {
	vtables map[string]*VTable
	mu      sync.Mutex
}

// Default is the process-wide registry.
var Default = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{vtables: make(map[string]*VTable)}
}

func vtableKey(concrete reflect.Type, own Ownership, caps []*Capability) string {
	var b strings.Builder
	b.WriteString(concrete.String())
	b.WriteByte('|')
	b.WriteString(own.String())
	for _, c := range caps {
		b.WriteByte('|')
		b.WriteString(c.Iface.PkgPath())
		b.WriteByte('.')
		b.WriteString(c.Iface.String())
		b.WriteByte('=')
		b.WriteString(c.Name)
	}
	return b.String()
}

// VTable returns the table for concrete viewed through caps.
func (r *Registry) VTable(concrete reflect.Type, own Ownership, caps ...*Capability) (*VTable, error) {
	if len(caps) == 0 {
		return nil, errors.InvalidInput(errors.PhaseRegister, "a vtable needs at least one capability")
	}
	for _, c := range caps {
		if !concrete.Implements(c.Iface) {
			return nil, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
				GoType(concrete.String()).
				Detail("does not implement capability %s (%s)", c.Name, c.Iface).
				Build()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(concrete, own, caps), nil
}

func (r *Registry) build(concrete reflect.Type, own Ownership, caps []*Capability) *VTable {
	key := vtableKey(concrete, own, caps)
	if vt, ok := r.vtables[key]; ok {
		return vt
	}

	vt := &VTable{
		concrete:  concrete,
		caps:      append([]*Capability(nil), caps...),
		ownership: own,
	}

	vt.slots = append(vt.slots, releaseEntry(concrete, own))
	vt.names = append(vt.names, "release_vptr")
	vt.types = append(vt.types, nil)
	if own == Shared {
		vt.slots = append(vt.slots, retainEntry(concrete))
		vt.names = append(vt.names, "retain_vptr")
		vt.types = append(vt.types, nil)
	}
	for _, c := range caps {
		for _, m := range c.Methods {
			vt.slots = append(vt.slots, methodEntry(concrete, m))
			vt.names = append(vt.names, m.Ident)
			vt.types = append(vt.types, m.Type)
		}
	}
	vt.addr = heap.Default.Alloc(vt)
	r.vtables[key] = vt

	// Prefix views are the tables of the shorter capability sets. Slots are
	// interned per concrete type, so a view built earlier has the same
	// entries as the prefix.
	for k := 1; k < len(caps); k++ {
		vt.views = append(vt.views, r.build(concrete, own, caps[:k]))
	}

	Logger().Debug("vtable built",
		zap.String("concrete", concrete.String()),
		zap.String("ownership", own.String()),
		zap.String("capabilities", capNames(caps, ",")),
		zap.Int("slots", len(vt.slots)))
	return vt
}

// object is the heap cell behind a virtual pointer's data address.
type object struct {
	value    reflect.Value
	count    atomic.Int64
	borrowed bool
}

// Drop runs the value's drop glue unless it is only borrowed.
func (o *object) Drop() {
	if o.borrowed {
		return
	}
	if d, ok := o.value.Interface().(heap.Dropper); ok {
		d.Drop()
	}
}

type entryKey struct {
	concrete reflect.Type
	op       string
	own      Ownership
}

func entryName(concrete reflect.Type, op string) string {
	return "dyn." + concrete.String() + "." + op
}

func loadObject(data ffibridge.Addr) *object {
	obj, ok := heap.Typed[*object](heap.Default, data)
	if !ok {
		contract.Violation(errors.KindUseAfterRelease, "virtual pointer data %#x is not live", uint64(data))
	}
	return obj
}

func releaseEntry(concrete reflect.Type, own Ownership) fnptr.Ptr {
	return fnptr.Default.Intern(entryKey{concrete, "release", own}, entryName(concrete, own.String()+".release"), func() any {
		switch own {
		case Borrowed:
			return LifecycleFn(func(ffibridge.Addr) {})
		case Shared:
			return LifecycleFn(func(data ffibridge.Addr) {
				obj, ok := heap.Typed[*object](heap.Default, data)
				if !ok {
					contract.Violation(errors.KindDoubleRelease, "shared virtual pointer %#x released after its last release", uint64(data))
					return
				}
				switch n := obj.count.Add(-1); {
				case n == 0:
					heap.Default.Free(data)
				case n < 0:
					contract.Violation(errors.KindDoubleRelease, "shared virtual pointer %#x released more times than retained", uint64(data))
				}
			})
		default:
			return LifecycleFn(func(data ffibridge.Addr) {
				if _, ok := heap.Default.Free(data); !ok {
					contract.Violation(errors.KindDoubleRelease, "virtual pointer %#x released twice", uint64(data))
				}
			})
		}
	})
}

func retainEntry(concrete reflect.Type) fnptr.Ptr {
	return fnptr.Default.Intern(entryKey{concrete, "retain", Shared}, entryName(concrete, "Arc.retain"), func() any {
		return LifecycleFn(func(data ffibridge.Addr) {
			if n := loadObject(data).count.Add(1); n <= 1 {
				contract.Violation(errors.KindUseAfterRelease, "shared virtual pointer %#x retained after its last release", uint64(data))
			}
		})
	})
}

// methodEntry returns the slot for method m on concrete. Slots do not
// depend on ownership, so every table of a concrete type shares them.
func methodEntry(concrete reflect.Type, m Method) fnptr.Ptr {
	impl, _ := concrete.MethodByName(m.Name)
	index := impl.Index
	return fnptr.Default.Intern(entryKey{concrete, "method:" + m.Name, Owned}, entryName(concrete, m.Name), func() any {
		return SlotFn(func(data ffibridge.Addr, args []any) any {
			obj := loadObject(data)
			in, err := invoke.Args(m.Type, 0, args)
			if err != nil {
				contract.Violation(errors.KindTypeMismatch, "%s: %v", entryName(concrete, m.Name), err)
			}
			return invoke.Result(obj.value.Method(index).Call(in))
		})
	})
}
