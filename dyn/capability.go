package dyn

import (
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/ffi-bridge/closure"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/repr"
)

// Method is one dispatchable operation of a capability.
type Method struct {
	Type  reflect.Type
	Sig   *repr.Signature
	Name  string // Go method name
	Ident string // slot name in generated headers
}

// Capability is a named set of methods a virtual pointer can expose. It
// is defined by a Go interface; slots follow its methods in name order.
type Capability struct {
	Iface   reflect.Type
	Name    string
	Methods []Method
}

type capKey struct {
	iface reflect.Type
	name  string
}

var capabilities sync.Map // capKey -> *Capability

// CapabilityOf defines a capability from interface I, named after I.
func CapabilityOf[I any]() (*Capability, error) {
	return capabilityOf(reflect.TypeFor[I](), "")
}

// CapabilityNamed defines a capability from interface I with an explicit
// name. Generic interfaces need one.
func CapabilityNamed[I any](name string) (*Capability, error) {
	return capabilityOf(reflect.TypeFor[I](), name)
}

// MustCapability is like CapabilityOf but panics on error.
func MustCapability[I any]() *Capability {
	c, err := CapabilityOf[I]()
	if err != nil {
		panic(err)
	}
	return c
}

func capabilityOf(iface reflect.Type, name string) (*Capability, error) {
	key := capKey{iface: iface, name: name}
	if cached, ok := capabilities.Load(key); ok {
		return cached.(*Capability), nil
	}

	if iface.Kind() != reflect.Interface {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			GoType(iface.String()).
			Detail("capabilities are defined by interface types").
			Build()
	}
	if name == "" {
		name = iface.Name()
	}
	if name == "" || strings.ContainsAny(name, "[]") {
		return nil, errors.Unsupported(errors.PhaseRegister, nil, iface.String(), "capability needs a name; use CapabilityNamed")
	}
	if iface.NumMethod() == 0 {
		return nil, errors.Unsupported(errors.PhaseRegister, []string{name}, iface.String(), "capability has no methods")
	}

	c := &Capability{Iface: iface, Name: name}
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		if !m.IsExported() {
			return nil, errors.Unsupported(errors.PhaseRegister, []string{name, m.Name}, iface.String(), "unexported methods cannot be dispatched")
		}
		sig, err := closure.Signature(m.Type)
		if err != nil {
			return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
				Path(name, m.Name).
				GoType(iface.String()).
				Cause(err).
				Detail("method signature has no canonical form").
				Build()
		}
		c.Methods = append(c.Methods, Method{
			Type:  m.Type,
			Sig:   sig,
			Name:  m.Name,
			Ident: repr.SnakeCase(m.Name),
		})
	}

	actual, _ := capabilities.LoadOrStore(key, c)
	return actual.(*Capability), nil
}

// Method returns the method with the given Go name.
func (c *Capability) Method(name string) (Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}
