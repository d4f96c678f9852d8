package headers

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/errors"
)

// Generate freezes reg and writes every item through b in one pass. Items
// are visited in name order; output depends only on the registry's
// contents. A write error aborts the pass; what was written stays written.
func Generate(w io.Writer, reg *Registry, b Backend, opts Options) error {
	reg.Freeze()
	items := reg.Items()
	d := newDefiner(b, w, opts)

	if err := d.Write(b.Prologue(opts)); err != nil {
		return errors.WriteFailed("prologue", err)
	}
	for _, it := range items {
		if err := generateItem(d, it); err != nil {
			return err
		}
	}
	if err := d.Write(b.Epilogue(opts)); err != nil {
		return errors.WriteFailed("epilogue", err)
	}

	Logger().Info("headers generated",
		zap.String("backend", b.Name()),
		zap.Int("items", len(items)),
		zap.Int("declarations", d.Len()))
	return nil
}

func generateItem(d *Definer, it Item) error {
	err := it.Generate(d)
	if err == nil {
		err = d.flush()
	}
	if werr := d.Err(); werr != nil {
		return errors.WriteFailed(it.Name, werr)
	}
	if err != nil {
		return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Path(it.Name).
			Cause(err).
			Detail("item generator failed").
			Build()
	}
	return nil
}

// Render returns the declarations of a single item and its dependencies,
// without prologue or epilogue.
func Render(it Item, b Backend, opts Options) (string, error) {
	var sb strings.Builder
	d := newDefiner(b, &sb, opts)
	if err := generateItem(d, it); err != nil {
		return "", err
	}
	return sb.String(), nil
}
