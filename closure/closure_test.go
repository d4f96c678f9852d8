package closure

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/contract"
	"github.com/wippyai/ffi-bridge/repr"
)

type point struct {
	X float32
	Y float32
}

type releaseCounter struct {
	mu    sync.Mutex
	freed map[uint64]int
}

func (r *releaseCounter) OnHeapEvent(e heap.Event) {
	if e.Type != heap.EventReleased {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freed[uint64(e.Addr)]++
}

func (r *releaseCounter) count(addr uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.freed[addr]
}

func watchReleases(t *testing.T) *releaseCounter {
	t.Helper()
	rc := &releaseCounter{freed: make(map[uint64]int)}
	heap.Default.Subscribe(rc)
	t.Cleanup(func() { heap.Default.Unsubscribe(rc) })
	return rc
}

func requireChecked(t *testing.T) {
	t.Helper()
	if !contract.Checked {
		t.Skip("contract checks disabled")
	}
}

func TestMulti_Call(t *testing.T) {
	add, err := New(func(a, b int32) int32 { return a + b })
	require.NoError(t, err)
	defer add.Release()

	for i := int32(0); i < 3; i++ {
		sum, err := Result[int32](add.Call(i, int32(10)))
		require.NoError(t, err)
		assert.Equal(t, i+10, sum)
	}

	v := add.Record().Invoke(int32(2), int32(3))
	assert.Equal(t, int32(5), v)
}

func TestMulti_CapturedState(t *testing.T) {
	total := int64(0)
	acc, err := New(func(p point) {
		total += int64(p.X + p.Y)
	})
	require.NoError(t, err)

	_, err = acc.Call(point{X: 1, Y: 2})
	require.NoError(t, err)
	_, err = acc.Call(point{X: 3, Y: 4})
	require.NoError(t, err)
	acc.Release()

	assert.Equal(t, int64(10), total)
}

func TestMulti_CallErrors(t *testing.T) {
	neg, err := New(func(a int32) int32 { return -a })
	require.NoError(t, err)
	defer neg.Release()

	tests := []struct {
		name string
		args []any
		kind errors.Kind
	}{
		{"too few", nil, errors.KindArity},
		{"too many", []any{int32(1), int32(2)}, errors.KindArity},
		{"wrong type", []any{int64(1)}, errors.KindTypeMismatch},
		{"nil", []any{nil}, errors.KindTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := neg.Call(tt.args...)
			var e *errors.Error
			require.True(t, errors.As(err, &e), "got %v", err)
			assert.Equal(t, tt.kind, e.Kind)
		})
	}

	_, err = Result[string](neg.Call(int32(1)))
	assert.Error(t, err)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		kind errors.Kind
	}{
		{"nil", nil, errors.KindInvalidInput},
		{"not a func", 42, errors.KindInvalidInput},
		{"nil func", (func())(nil), errors.KindInvalidInput},
		{"variadic", func(...int32) {}, errors.KindUnsupported},
		{"two results", func() (int32, int32) { return 0, 0 }, errors.KindUnsupported},
		{"string param", func(string) {}, errors.KindUnsupported},
		{"slice result", func() []byte { return nil }, errors.KindUnsupported},
		{"ten params", func(a, b, c, d, e, f, g, h, i, j int32) {}, errors.KindArity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fn)
			var e *errors.Error
			require.True(t, errors.As(err, &e), "got %v", err)
			assert.Equal(t, tt.kind, e.Kind)
		})
	}
}

func TestNew_MaxArity(t *testing.T) {
	sum9, err := New(func(a, b, c, d, e, f, g, h, i int32) int32 {
		return a + b + c + d + e + f + g + h + i
	})
	require.NoError(t, err)
	defer sum9.Release()

	args := make([]any, MaxArity)
	for i := range args {
		args[i] = int32(i + 1)
	}
	got, err := Result[int32](sum9.Call(args...))
	require.NoError(t, err)
	assert.Equal(t, int32(45), got)
}

func TestOnce(t *testing.T) {
	calls := 0
	once, err := NewOnce(func() bool { calls++; return true })
	require.NoError(t, err)

	env := uint64(once.Record().Env)
	ok, err := Result[bool](once.Call())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, heap.Default.Live(once.Record().Env), "calling consumes the environment (%#x)", env)

	once.Release()
	assert.Equal(t, 1, calls)
}

func TestOnce_NeverCalled(t *testing.T) {
	once, err := NewOnce(func() {})
	require.NoError(t, err)
	once.Release()
	assert.False(t, heap.Default.Live(once.Record().Env))
}

func TestOnce_Violations(t *testing.T) {
	requireChecked(t)

	once, err := NewOnce(func() {})
	require.NoError(t, err)
	_, err = once.Call()
	require.NoError(t, err)

	v := contract.Catch(func() { _, _ = once.Call() })
	require.NotNil(t, v)
	assert.Equal(t, errors.KindUseAfterRelease, v.Kind)

	v = contract.Catch(func() { once.Record().Invoke() })
	require.NotNil(t, v)
	assert.Equal(t, errors.KindUseAfterRelease, v.Kind)
}

func TestMulti_Violations(t *testing.T) {
	requireChecked(t)

	m, err := New(func() {})
	require.NoError(t, err)
	rec := m.Record()
	m.Release()

	v := contract.Catch(func() { m.Release() })
	require.NotNil(t, v)
	assert.Equal(t, errors.KindDoubleRelease, v.Kind)

	v = contract.Catch(func() { rec.Invoke() })
	require.NotNil(t, v)
	assert.Equal(t, errors.KindUseAfterRelease, v.Kind)

	v = contract.Catch(func() { Record{Env: rec.Env}.Invoke() })
	require.NotNil(t, v)
	assert.Equal(t, errors.KindNilPointer, v.Kind)

	live, err := New(func(int32) {})
	require.NoError(t, err)
	defer live.Release()
	v = contract.Catch(func() { live.Record().Invoke("nope") })
	require.NotNil(t, v)
	assert.Equal(t, errors.KindTypeMismatch, v.Kind)
}

// A shared closure held by two holders, called concurrently and released
// by both, frees its environment exactly once and is never called after.
func TestShared_TwoHolders(t *testing.T) {
	rc := watchReleases(t)

	var calls atomic.Int64
	owner, err := NewShared(func(n int32) int32 {
		calls.Add(1)
		return n * 2
	})
	require.NoError(t, err)
	env := uint64(owner.Record().Env)

	h1 := owner.Clone()
	h2 := owner.Clone()
	owner.Release()
	require.Equal(t, int64(2), h1.Count())

	const perHolder = 100
	var wg sync.WaitGroup
	for _, h := range []*Shared{h1, h2} {
		wg.Add(1)
		go func(h *Shared) {
			defer wg.Done()
			for i := 0; i < perHolder; i++ {
				got, err := Result[int32](h.Call(int32(i)))
				if err != nil || got != int32(i)*2 {
					t.Errorf("call %d = %d, %v", i, got, err)
				}
			}
		}(h)
	}
	wg.Wait()

	h1.Release()
	assert.Equal(t, 0, rc.count(env), "freed before the last release")
	h2.Release()

	assert.Equal(t, 1, rc.count(env))
	assert.Equal(t, int64(2*perHolder), calls.Load())
	assert.Equal(t, int64(0), h2.Count())

	if contract.Checked {
		v := contract.Catch(func() { _, _ = h1.Call(int32(1)) })
		require.NotNil(t, v)
		assert.Equal(t, int64(2*perHolder), calls.Load())
	}
}

func TestShared_RecordLevel(t *testing.T) {
	s, err := NewShared(func() int32 { return 7 })
	require.NoError(t, err)

	rec := s.Record().Clone()
	assert.Equal(t, int64(2), s.Count())
	assert.Equal(t, int32(7), rec.Invoke())
	rec.Free()
	s.Release()
	assert.Equal(t, int64(0), s.Count())
}

func TestTrampolinesInterned(t *testing.T) {
	a, err := New(func(x int32) int32 { return x })
	require.NoError(t, err)
	defer a.Release()
	b, err := New(func(x int32) int32 { return x + 1 })
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, a.Record().Call, b.Record().Call)
	assert.Equal(t, a.Record().Release, b.Record().Release)
	assert.NotEqual(t, a.Record().Env, b.Record().Env)

	once, err := NewOnce(func(x int32) int32 { return x })
	require.NoError(t, err)
	defer once.Release()
	assert.NotEqual(t, a.Record().Call, once.Record().Call)
}

func TestTypeOf(t *testing.T) {
	l, err := TypeOf[func(int32, point) float32]()
	require.NoError(t, err)
	assert.Equal(t, "BoxDynFnMut2_f32_i32_point", l.Name)
	assert.Equal(t, uint32(24), l.Size)
	require.Len(t, l.Fields, 3)

	call := l.Fields[1].Layout
	require.Equal(t, repr.KindFuncPtr, call.Kind)
	require.Len(t, call.Sig.Params, 3)
	assert.Equal(t, "env", call.Sig.Params[0].Name)
	assert.Equal(t, repr.KindF32, call.Sig.Result.Kind)

	l, err = SharedTypeOf[func()]()
	require.NoError(t, err)
	assert.Equal(t, "ArcDynFn0_void", l.Name)
	assert.Len(t, l.Fields, 4)

	l, err = OnceTypeOf[func(bool) bool]()
	require.NoError(t, err)
	assert.Equal(t, "BoxDynFnOnce1_bool_bool", l.Name)
}

func TestRecord_CanonicalLayout(t *testing.T) {
	d := repr.MustOf[Record]()
	assert.Equal(t, uint32(24), d.Size())

	m, err := New(func() {})
	require.NoError(t, err)
	defer m.Release()
	assert.True(t, d.IsValid(d.Lower(m.Record())))
	assert.False(t, d.IsValid(make([]byte, 24)), "null call pointer must be invalid")
}

func BenchmarkMulti_Call(b *testing.B) {
	add, _ := New(func(a, b int32) int32 { return a + b })
	defer add.Release()
	rec := add.Record()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rec.Invoke(int32(i), int32(1))
	}
}
