package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseLower,
				Kind:     KindTypeMismatch,
				Path:     []string{"Shape", "origin", "x"},
				GoType:   "string",
				ReprType: "float",
				Detail:   "cannot convert",
			},
			contains: []string{"[lower]", "type_mismatch", "Shape.origin.x", "string", "float", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLift,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[lift]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseGenerate,
				Kind:   KindIO,
				Detail: "disk full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[generate]", "io", "disk full", "caused by", "underlying error"},
		},
		{
			name: "repr type only",
			err: &Error{
				Phase:    PhaseValidate,
				Kind:     KindInvalidData,
				ReprType: "Point",
				Detail:   "bad bytes",
			},
			contains: []string{"repr Point", " - bad bytes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLower,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseRegister,
		Kind:  KindUnsupported,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseRegister, Kind: KindUnsupported}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseCall, Kind: KindUnsupported}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseRegister, Kind: KindArity}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseRegister, Kind: KindUnsupported}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseLower, KindTypeMismatch).
		Path("user", "name").
		GoType("string").
		ReprType("uint32_t").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseLower {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseLower)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.ReprType != "uint32_t" {
		t.Errorf("ReprType = %v, want 'uint32_t'", err.ReprType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v, want 'expected string, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseCall, []string{"arg0"}, "int", "float")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.GoType != "int" || err.ReprType != "float" {
			t.Errorf("GoType=%v ReprType=%v", err.GoType, err.ReprType)
		}
	})

	t.Run("InvalidBytes", func(t *testing.T) {
		err := InvalidBytes("bool", make([]byte, 64))
		if err.Kind != KindInvalidData || err.Phase != PhaseValidate {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if strings.Count(err.Detail, "00") != 32 {
			t.Errorf("Detail should preview 32 bytes, got %q", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseMemory, 1024, 8)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("Arity", func(t *testing.T) {
		err := Arity(PhaseRegister, "func(...)", 10, 9)
		if err.Kind != KindArity || err.Value != 10 {
			t.Errorf("got kind %v value %v", err.Kind, err.Value)
		}
	})

	t.Run("EmbeddedNul", func(t *testing.T) {
		err := EmbeddedNul(PhaseLower, 3)
		if err.Kind != KindEmbeddedNul {
			t.Errorf("Kind = %v, want %v", err.Kind, KindEmbeddedNul)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseRegister, []string{"T"}, "map[string]int", "maps have no fixed layout")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseMemory, []string{"buf"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseCall, []string{"call"}, "fnptr.Ptr")
		if err.Kind != KindNilPointer {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNilPointer)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseLower, []string{"val"}, 300, "uint8_t")
		if err.Kind != KindOverflow || err.Value != 300 {
			t.Errorf("got kind %v value %v", err.Kind, err.Value)
		}
	})

	t.Run("InvalidEnum", func(t *testing.T) {
		err := InvalidEnum(PhaseLift, []string{"status"}, 7, "Status")
		if err.Kind != KindInvalidEnum {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidEnum)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := Duplicate(PhaseRegister, "export", "point_new")
		if err.Kind != KindDuplicate || !strings.Contains(err.Detail, "point_new") {
			t.Errorf("got %v", err)
		}
	})

	t.Run("Violation", func(t *testing.T) {
		err := Violation(KindDoubleRelease, "address released twice")
		if err.Phase != PhaseContract {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseContract)
		}
	})

	t.Run("WriteFailed", func(t *testing.T) {
		cause := errors.New("disk full")
		err := WriteFailed("Point", cause)
		if !errors.Is(err, cause) {
			t.Error("WriteFailed should wrap cause")
		}
		if err.Kind != KindIO {
			t.Errorf("Kind = %v, want %v", err.Kind, KindIO)
		}
	})
}
