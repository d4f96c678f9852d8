package dyn

import (
	"github.com/wippyai/ffi-bridge/repr"
)

// LayoutFor returns the header layout of the vtable for caps under own,
// e.g. BoxDynShape_VTable. The first field is release_vptr; shared
// tables follow it with retain_vptr. Method fields take the data pointer
// first.
func LayoutFor(own Ownership, caps ...*Capability) (*repr.Layout, error) {
	data := repr.PointerTo(nil, false)
	lifecycle := repr.FuncPtr(&repr.Signature{
		Params: []repr.Param{{Name: "ptr", Layout: data}},
	}, false)

	fields := []repr.Field{{Name: "release_vptr", Layout: lifecycle}}
	if own == Shared {
		fields = append(fields, repr.Field{Name: "retain_vptr", Layout: lifecycle})
	}
	for _, c := range caps {
		for _, m := range c.Methods {
			sig := &repr.Signature{
				Params: append([]repr.Param{{Name: "ptr", Layout: data}}, m.Sig.Params...),
				Result: m.Sig.Result,
			}
			fields = append(fields, repr.Field{Name: m.Ident, Layout: repr.FuncPtr(sig, false), Doc: c.Name + "." + m.Name})
		}
	}
	return repr.StructOf(dynName(own, caps)+"_VTable", fields...)
}

// PointerLayoutFor returns the two-word virtual pointer layout for caps
// under own: a data pointer and a pointer to the matching vtable.
func PointerLayoutFor(own Ownership, caps ...*Capability) (*repr.Layout, error) {
	vt, err := LayoutFor(own, caps...)
	if err != nil {
		return nil, err
	}
	return repr.StructOf("VirtualPtr_"+dynName(own, caps),
		repr.Field{Name: "ptr", Layout: repr.PointerTo(nil, false)},
		repr.Field{Name: "vtable", Layout: repr.ConstPointerTo(vt, false)},
	)
}

// Layout returns the header layout of v.
func (v *VTable) Layout() (*repr.Layout, error) {
	return LayoutFor(v.ownership, v.caps...)
}

func dynName(own Ownership, caps []*Capability) string {
	return own.String() + "Dyn" + capNames(caps, "_")
}
