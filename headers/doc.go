// Package headers generates foreign-language declarations for exported
// items.
//
// Items are collected in an explicit Registry during initialisation. Generate
// freezes the registry and makes one pass over it with a fresh Definer, the
// sink that guarantees each named declaration is written once. Item
// generators define their dependencies first; a name already inserted is
// skipped. Structs used by value are completed before their users; structs
// only reached through pointers are forward-declared and completed after
// the current declaration, which breaks cycles between types that refer to
// each other.
//
//	reg := headers.NewRegistry()
//	item, _ := headers.TypeOf[Point]()
//	reg.MustRegister(item)
//	err := headers.Generate(os.Stdout, reg, c.New(), headers.DefaultOptions())
//
// Syntax belongs to a Backend. The c and csharp subpackages provide the two
// targets.
package headers
