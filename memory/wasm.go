package memory

import (
	"context"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/ffi-bridge/errors"
)

// PageSize is the WebAssembly page size.
const PageSize = 65536

// Wasm is a WebAssembly linear memory owned by its own wazero runtime.
type Wasm struct {
	*Wrapper
	runtime wazero.Runtime
}

// NewWasm instantiates a module exporting one memory of pages pages, which
// may grow up to maxPages.
func NewWasm(ctx context.Context, pages, maxPages uint32) (*Wasm, error) {
	if pages == 0 || maxPages < pages {
		return nil, errors.InvalidInput(errors.PhaseMemory, "wasm memory needs 0 < pages <= maxPages")
	}

	cfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(maxPages)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	mod, err := rt.Instantiate(ctx, memoryModule(pages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.NotFound(errors.PhaseMemory, "export", "memory")
	}

	return &Wasm{Wrapper: Wrap(mem), runtime: rt}, nil
}

// Grow adds delta pages and returns the previous size in pages.
func (w *Wasm) Grow(delta uint32) (uint32, bool) {
	return w.Mem.Grow(delta)
}

// Close releases the runtime and its memory.
func (w *Wasm) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

// memoryModule encodes a module with a single exported memory section.
func memoryModule(pages uint32) []byte {
	limits := append([]byte{0x01, 0x00}, uleb128(pages)...) // one memory, min only

	bin := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	bin = append(bin, 0x05)
	bin = append(bin, uleb128(uint32(len(limits)))...)
	bin = append(bin, limits...)
	bin = append(bin,
		0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
		0x06, 'm', 'e', 'm', 'o', 'r', 'y',
		0x02, 0x00, // kind: memory, index 0
	)
	return bin
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
