package closure

import (
	"reflect"
	"sync/atomic"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/fnptr"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/contract"
	"github.com/wippyai/ffi-bridge/internal/invoke"
)

type flavor uint8

const (
	flavorOnce flavor = iota
	flavorMulti
	flavorShared
)

func (f flavor) String() string {
	switch f {
	case flavorOnce:
		return "once"
	case flavorMulti:
		return "multi"
	default:
		return "shared"
	}
}

// env is the captured state behind a record's Env address.
type env struct {
	fn     reflect.Value
	count  atomic.Int64
	called atomic.Bool
}

type entryKey struct {
	typ    reflect.Type
	op     string
	flavor flavor
}

func entryName(f flavor, typ reflect.Type, op string) string {
	return "closure." + f.String() + "(" + typ.String() + ")." + op
}

// callEntry returns the call trampoline for closures of type typ. One
// trampoline exists per flavor and concrete function type.
func callEntry(f flavor, typ reflect.Type) fnptr.Ptr {
	return fnptr.Default.Intern(entryKey{typ, "call", f}, entryName(f, typ, "call"), func() any {
		return CallFn(func(addr ffibridge.Addr, args []any) any {
			e := loadEnv(addr)
			in, err := invoke.Args(typ, 0, args)
			if err != nil {
				contract.Violation(errors.KindTypeMismatch, "%s: %v", entryName(f, typ, "call"), err)
			}
			if f == flavorOnce && !e.called.CompareAndSwap(false, true) {
				contract.Violation(errors.KindUseAfterRelease, "once closure %#x called twice", uint64(addr))
			}

			out := e.fn.Call(in)

			if f == flavorOnce {
				heap.Default.Free(addr)
			}
			return invoke.Result(out)
		})
	})
}

func releaseEntry(f flavor, typ reflect.Type) fnptr.Ptr {
	return fnptr.Default.Intern(entryKey{typ, "release", f}, entryName(f, typ, "release"), func() any {
		if f == flavorShared {
			return EnvFn(func(addr ffibridge.Addr) {
				e, ok := heap.Typed[*env](heap.Default, addr)
				if !ok {
					contract.Violation(errors.KindDoubleRelease, "shared closure %#x released after its last release", uint64(addr))
					return
				}
				switch n := e.count.Add(-1); {
				case n == 0:
					heap.Default.Free(addr)
				case n < 0:
					contract.Violation(errors.KindDoubleRelease, "shared closure %#x released more times than retained", uint64(addr))
				}
			})
		}
		return EnvFn(func(addr ffibridge.Addr) {
			if _, ok := heap.Default.Free(addr); !ok {
				contract.Violation(errors.KindDoubleRelease, "closure %#x released twice", uint64(addr))
			}
		})
	})
}

func retainEntry(typ reflect.Type) fnptr.Ptr {
	return fnptr.Default.Intern(entryKey{typ, "retain", flavorShared}, entryName(flavorShared, typ, "retain"), func() any {
		return EnvFn(func(addr ffibridge.Addr) {
			e := loadEnv(addr)
			if n := e.count.Add(1); n <= 1 {
				contract.Violation(errors.KindUseAfterRelease, "shared closure %#x retained after its last release", uint64(addr))
			}
		})
	})
}

func loadEnv(addr ffibridge.Addr) *env {
	e, ok := heap.Typed[*env](heap.Default, addr)
	if !ok {
		contract.Violation(errors.KindUseAfterRelease, "closure environment %#x is not live", uint64(addr))
	}
	return e
}
