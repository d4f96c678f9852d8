package invoke

import (
	"reflect"
	"testing"

	"github.com/wippyai/ffi-bridge/errors"
)

type counter struct{ n int32 }

func (c *counter) Add(d int32) int32 {
	c.n += d
	return c.n
}

func TestArgs(t *testing.T) {
	typ := reflect.TypeOf(func(int32, float32) {})

	tests := []struct {
		name string
		args []any
		kind errors.Kind
		path string
	}{
		{name: "ok", args: []any{int32(1), float32(2)}},
		{name: "too few", args: []any{int32(1)}, kind: errors.KindArity},
		{name: "too many", args: []any{int32(1), float32(2), 3}, kind: errors.KindArity},
		{name: "wrong type", args: []any{int32(1), 2.0}, kind: errors.KindTypeMismatch, path: "arg1"},
		{name: "nil", args: []any{nil, float32(2)}, kind: errors.KindTypeMismatch, path: "arg0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Args(typ, 0, tt.args)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("Args: %v", err)
				}
				if len(in) != 2 || in[0].Interface() != int32(1) {
					t.Errorf("in = %v", in)
				}
				return
			}

			var e *errors.Error
			if !errors.As(err, &e) {
				t.Fatalf("err = %v, want *errors.Error", err)
			}
			if e.Kind != tt.kind || e.Phase != errors.PhaseCall {
				t.Errorf("got %s/%s, want call/%s", e.Phase, e.Kind, tt.kind)
			}
			if tt.path != "" && (len(e.Path) != 1 || e.Path[0] != tt.path) {
				t.Errorf("Path = %v, want [%s]", e.Path, tt.path)
			}
		})
	}
}

func TestArgs_SkipsReceiver(t *testing.T) {
	m, _ := reflect.TypeOf(&counter{}).MethodByName("Add")
	if _, err := Args(m.Type, 1, []any{int32(2)}); err != nil {
		t.Fatalf("Args: %v", err)
	}

	c := &counter{n: 1}
	in, _ := Args(m.Type, 1, []any{int32(2)})
	out := reflect.ValueOf(c).MethodByName("Add").Call(in)
	if got := Result(out); got != int32(3) {
		t.Errorf("Result = %v, want 3", got)
	}
}

func TestResult_Void(t *testing.T) {
	if got := Result(nil); got != nil {
		t.Errorf("Result(nil) = %v", got)
	}
}

func TestArgName(t *testing.T) {
	if got := ArgName(12); got != "arg12" {
		t.Errorf("ArgName(12) = %q", got)
	}
}
