package headers

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/repr"
)

// Definer is the deduplicating sink of one generation pass. Every
// declaration is written at most once: callers Insert a name first and
// emit only when Insert reports it as new.
//
// A struct needed by value is completed before its user. A struct only
// reached through a pointer gets a forward declaration on the spot and its
// body after the current declaration, so output is valid whatever order
// items are visited in.
type Definer struct {
	backend   Backend
	w         *errWriter
	defined   map[string]struct{}
	complete  map[string]struct{}
	forwarded map[string]struct{}
	pending   []*repr.Layout
	opts      Options
}

func newDefiner(b Backend, w io.Writer, opts Options) *Definer {
	return &Definer{
		backend:   b,
		w:         &errWriter{w: w},
		defined:   make(map[string]struct{}),
		complete:  make(map[string]struct{}),
		forwarded: make(map[string]struct{}),
		opts:      opts,
	}
}

// Backend returns the active backend.
func (d *Definer) Backend() Backend { return d.backend }

// Options returns the pass options.
func (d *Definer) Options() Options { return d.opts }

// Insert records name and reports whether it was new. A false result
// means the declaration is already written or in progress and must not
// be emitted again.
func (d *Definer) Insert(name string) bool {
	if _, ok := d.defined[name]; ok {
		return false
	}
	d.defined[name] = struct{}{}
	return true
}

// Contains reports whether name has been inserted.
func (d *Definer) Contains(name string) bool {
	_, ok := d.defined[name]
	return ok
}

// Len returns the number of inserted names.
func (d *Definer) Len() int { return len(d.defined) }

// Write appends raw declaration text. After the first write error every
// call returns that error.
func (d *Definer) Write(text string) error {
	if text == "" {
		return d.w.err
	}
	d.w.WriteString(text)
	return d.w.err
}

// Err returns the first write error of the pass.
func (d *Definer) Err() error { return d.w.err }

// Define emits l and every named layout it depends on.
func (d *Definer) Define(l *repr.Layout) error {
	if err := d.define(l); err != nil {
		return err
	}
	return d.flush()
}

func (d *Definer) define(l *repr.Layout) error {
	if l == nil {
		return d.w.err
	}
	switch l.Kind {
	case repr.KindPointer:
		if l.Elem != nil && l.Elem.Kind == repr.KindStruct {
			return d.declareLater(l.Elem)
		}
		return d.define(l.Elem)
	case repr.KindArray:
		return d.define(l.Elem)
	case repr.KindFuncPtr:
		return d.defineSig(l.Sig)
	case repr.KindEnum:
		if !d.Insert(l.Name) {
			return d.w.err
		}
		return d.emit(l.Name, d.backend.Enum(l))
	case repr.KindOpaque:
		if !d.Insert(l.Name) {
			return d.w.err
		}
		return d.emit(l.Name, d.backend.Opaque(l))
	case repr.KindStruct:
		return d.defineStruct(l)
	default:
		if l.Name == "" || !d.Insert(l.Name) {
			return d.w.err
		}
		return d.emit(l.Name, d.backend.Primitive(l))
	}
}

// declareLater declares l and queues its body.
func (d *Definer) declareLater(l *repr.Layout) error {
	if _, ok := d.complete[l.Name]; ok {
		return d.w.err
	}
	if err := d.forward(l); err != nil {
		return err
	}
	d.pending = append(d.pending, l)
	return d.w.err
}

// flush writes the bodies queued by pointer references.
func (d *Definer) flush() error {
	for len(d.pending) > 0 {
		l := d.pending[0]
		d.pending = d.pending[1:]
		if err := d.defineStruct(l); err != nil {
			return err
		}
	}
	return d.w.err
}

func (d *Definer) forward(l *repr.Layout) error {
	if _, ok := d.forwarded[l.Name]; ok {
		return d.w.err
	}
	d.forwarded[l.Name] = struct{}{}
	return d.Write(d.backend.Forward(l))
}

func (d *Definer) defineStruct(l *repr.Layout) error {
	if !d.Insert(l.Name) {
		// in progress: users of the name see at least its declaration
		if _, ok := d.complete[l.Name]; !ok {
			return d.forward(l)
		}
		return d.w.err
	}
	for _, f := range l.Fields {
		if err := d.define(f.Layout); err != nil {
			return err
		}
	}
	if err := d.forward(l); err != nil {
		return err
	}
	d.complete[l.Name] = struct{}{}
	return d.emit(l.Name, d.backend.Struct(l, d.opts))
}

func (d *Definer) defineSig(sig *repr.Signature) error {
	if sig == nil {
		return d.w.err
	}
	for _, p := range sig.Params {
		if err := d.define(p.Layout); err != nil {
			return err
		}
	}
	return d.define(sig.Result)
}

// DefineFunc emits the declaration of function name and its
// dependencies.
func (d *Definer) DefineFunc(name string, sig *repr.Signature, doc string) error {
	if !d.Insert(name) {
		return d.w.err
	}
	if err := d.defineSig(sig); err != nil {
		return err
	}
	if err := d.emit(name, d.backend.Func(name, sig, doc, d.opts)); err != nil {
		return err
	}
	return d.flush()
}

// DefineConst emits a constant declaration.
func (d *Definer) DefineConst(name string, l *repr.Layout, value any, doc string) error {
	if !d.Insert(name) {
		return d.w.err
	}
	if err := d.define(l); err != nil {
		return err
	}
	return d.emit(name, d.backend.Const(name, l, value, doc))
}

func (d *Definer) emit(name, text string) error {
	Logger().Debug("declaration", zap.String("name", name), zap.Int("bytes", len(text)))
	return d.Write(text)
}

// errWriter keeps the first write error and drops every later write.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}
