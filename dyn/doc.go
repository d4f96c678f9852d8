// Package dyn exports host objects to foreign code as virtual pointers.
//
// A virtual pointer is two words: the address of the object's data and the
// address of a vtable. A vtable is built for one concrete type viewed
// through an ordered set of capabilities under one ownership mode. Its
// slots are the lifecycle entries (release, and retain for shared
// pointers) followed by each capability's methods. The table for a prefix
// of the capability set is a prefix of the slots, so upcasting never
// builds anything.
//
//	shape := dyn.MustCapability[Shape]()
//	p, _ := dyn.Box(&Circle{R: 1}, shape)
//	area, _ := p.Call("Area")
//	p.Release()
//
// Tables are built once per (concrete type, ownership, capability set)
// and live for the life of their Registry. Owned pointers run the value's
// drop glue on release, borrowed pointers release nothing and shared
// pointers free the value with their last holder.
package dyn
