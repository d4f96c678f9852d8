// Package invoke converts erased argument lists for reflective calls.
package invoke

import (
	"reflect"
	"strconv"

	"github.com/wippyai/ffi-bridge/errors"
)

// Args checks args against the parameters of fn type typ. skip leading
// parameters are supplied by the caller (e.g. a method receiver).
func Args(typ reflect.Type, skip int, args []any) ([]reflect.Value, error) {
	want := typ.NumIn() - skip
	if len(args) != want {
		return nil, errors.New(errors.PhaseCall, errors.KindArity).
			GoType(typ.String()).
			Detail("got %d arguments, want %d", len(args), want).
			Build()
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := typ.In(i + skip)
		if a == nil {
			return nil, errors.TypeMismatch(errors.PhaseCall, []string{ArgName(i)}, "nil", pt.String())
		}
		v := reflect.ValueOf(a)
		if !v.Type().AssignableTo(pt) {
			return nil, errors.TypeMismatch(errors.PhaseCall, []string{ArgName(i)}, v.Type().String(), pt.String())
		}
		in[i] = v
	}
	return in, nil
}

// Result unpacks the single optional result of a reflective call.
func Result(out []reflect.Value) any {
	if len(out) == 0 {
		return nil
	}
	return out[0].Interface()
}

// ArgName names positional parameter i.
func ArgName(i int) string {
	return "arg" + strconv.Itoa(i)
}
