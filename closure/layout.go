package closure

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/internal/invoke"
	"github.com/wippyai/ffi-bridge/repr"
)

var recordPrefix = map[flavor]string{
	flavorOnce:   "BoxDynFnOnce",
	flavorMulti:  "BoxDynFnMut",
	flavorShared: "ArcDynFn",
}

// TypeOf returns the record layout of a Multi closure with signature F,
// e.g. BoxDynFnMut2_f32_i32_Point for func(int32, Point) float32.
func TypeOf[F any]() (*repr.Layout, error) {
	return recordLayout(flavorMulti, reflect.TypeFor[F]())
}

// OnceTypeOf returns the record layout of a Once closure with signature F.
func OnceTypeOf[F any]() (*repr.Layout, error) {
	return recordLayout(flavorOnce, reflect.TypeFor[F]())
}

// SharedTypeOf returns the record layout of a Shared closure with
// signature F.
func SharedTypeOf[F any]() (*repr.Layout, error) {
	return recordLayout(flavorShared, reflect.TypeFor[F]())
}

// Signature returns the canonical signature of fn type typ, without the
// environment parameter.
func Signature(typ reflect.Type) (*repr.Signature, error) {
	if typ.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			GoType(typ.String()).
			Detail("not a func type").
			Build()
	}
	if typ.IsVariadic() {
		return nil, errors.Unsupported(errors.PhaseRegister, nil, typ.String(), "variadic functions have no fixed arity")
	}
	if typ.NumIn() > MaxArity {
		return nil, errors.Arity(errors.PhaseRegister, typ.String(), typ.NumIn(), MaxArity)
	}
	if typ.NumOut() > 1 {
		return nil, errors.Unsupported(errors.PhaseRegister, nil, typ.String(), "closures return at most one value")
	}

	sig := &repr.Signature{}
	for i := 0; i < typ.NumIn(); i++ {
		ct, err := repr.TypeOf(typ.In(i))
		if err != nil {
			return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
				Path(invoke.ArgName(i)).
				GoType(typ.String()).
				Cause(err).
				Detail("parameter %d has no canonical layout", i).
				Build()
		}
		sig.Params = append(sig.Params, repr.Param{Name: invoke.ArgName(i), Layout: ct.Layout()})
	}
	if typ.NumOut() == 1 {
		ct, err := repr.TypeOf(typ.Out(0))
		if err != nil {
			return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
				Path("result").
				GoType(typ.String()).
				Cause(err).
				Detail("result has no canonical layout").
				Build()
		}
		sig.Result = ct.Layout()
	}
	return sig, nil
}

func recordLayout(f flavor, typ reflect.Type) (*repr.Layout, error) {
	sig, err := Signature(typ)
	if err != nil {
		return nil, err
	}

	envPtr := repr.PointerTo(nil, false)
	callSig := &repr.Signature{
		Params: append([]repr.Param{{Name: "env", Layout: envPtr}}, sig.Params...),
		Result: sig.Result,
	}
	envSig := &repr.Signature{Params: []repr.Param{{Name: "env", Layout: envPtr}}}

	fields := []repr.Field{
		{Name: "env", Layout: envPtr},
		{Name: "call", Layout: repr.FuncPtr(callSig, false)},
		{Name: "release", Layout: repr.FuncPtr(envSig, false)},
	}
	if f == flavorShared {
		fields = append(fields, repr.Field{Name: "retain", Layout: repr.FuncPtr(envSig, false)})
	}

	l, err := repr.StructOf(recordName(f, sig), fields...)
	if err != nil {
		return nil, err
	}
	l.Doc = typ.String()
	return l, nil
}

func recordName(f flavor, sig *repr.Signature) string {
	var b strings.Builder
	b.WriteString(recordPrefix[f])
	b.WriteString(strconv.Itoa(len(sig.Params)))
	b.WriteByte('_')
	b.WriteString(sig.Result.Ident())
	for _, p := range sig.Params {
		b.WriteByte('_')
		b.WriteString(p.Layout.Ident())
	}
	return b.String()
}
