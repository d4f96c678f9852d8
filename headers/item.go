package headers

import (
	"reflect"

	"github.com/wippyai/ffi-bridge/closure"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/repr"
)

// ItemKind classifies an exported item.
type ItemKind uint8

const (
	ItemType ItemKind = iota
	ItemFunc
	ItemConst
	ItemOpaque
)

func (k ItemKind) String() string {
	switch k {
	case ItemType:
		return "type"
	case ItemFunc:
		return "func"
	case ItemConst:
		return "const"
	case ItemOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Item is one exported declaration. Generate emits it, and anything it
// depends on, through the Definer.
type Item struct {
	Generate func(d *Definer) error
	Name     string
	Doc      string
	Kind     ItemKind
}

// TypeItem exports the declaration of a named layout.
func TypeItem(l *repr.Layout) Item {
	return Item{
		Name: l.Name,
		Doc:  l.Doc,
		Kind: ItemType,
		Generate: func(d *Definer) error {
			return d.Define(l)
		},
	}
}

// TypeOf exports the canonical layout of Go type T.
func TypeOf[T any]() (Item, error) {
	ct, err := repr.TypeOf(reflect.TypeFor[T]())
	if err != nil {
		return Item{}, err
	}
	l := ct.Layout()
	if l.Name == "" {
		return Item{}, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			GoType(ct.GoType().String()).
			ReprType(l.String()).
			Detail("only named layouts can be exported as types").
			Build()
	}
	return TypeItem(l), nil
}

// FuncItem exports a function with the given canonical signature.
func FuncItem(name string, sig *repr.Signature, doc string) Item {
	return Item{
		Name: name,
		Doc:  doc,
		Kind: ItemFunc,
		Generate: func(d *Definer) error {
			return d.DefineFunc(name, sig, doc)
		},
	}
}

// FuncOf exports a function whose signature is taken from fn, a Go func
// value or nil func of the exported shape.
func FuncOf(name string, fn any, doc string) (Item, error) {
	if fn == nil {
		return Item{}, errors.InvalidInput(errors.PhaseRegister, "FuncOf needs a func value")
	}
	sig, err := closure.Signature(reflect.TypeOf(fn))
	if err != nil {
		return Item{}, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			Path(name).
			Cause(err).
			Detail("exported function has no canonical signature").
			Build()
	}
	return FuncItem(name, sig, doc), nil
}

// ConstItem exports a constant of a primitive layout.
func ConstItem(name string, l *repr.Layout, value any, doc string) Item {
	return Item{
		Name: name,
		Doc:  doc,
		Kind: ItemConst,
		Generate: func(d *Definer) error {
			return d.DefineConst(name, l, value, doc)
		},
	}
}

// OpaqueItem exports a type foreign code only handles by pointer.
func OpaqueItem(name, doc string) Item {
	l := repr.Opaque(name)
	l.Doc = doc
	return Item{
		Name: name,
		Doc:  doc,
		Kind: ItemOpaque,
		Generate: func(d *Definer) error {
			return d.Define(l)
		},
	}
}
