package runtime

import (
	"testing"

	"github.com/xirelogy/go-lox/internal/object"
)

func withRegistry(t *testing.T) {
	t.Helper()
	saved := byName
	byName = map[string]Spec{}
	t.Cleanup(func() { byName = saved })
}

func constant(v object.Value) object.NativeFn {
	return func([]object.Value) (object.Value, error) { return v, nil }
}

func TestRegisterAndLookup(t *testing.T) {
	withRegistry(t)
	Register(Spec{Name: "zeta", Arity: 0, Fn: constant(object.Nil())})
	Register(Spec{Name: "alpha", Arity: 1, Fn: constant(object.Bool(true))})

	if _, ok := LookupByName("alpha"); !ok {
		t.Fatalf("alpha not found")
	}
	if _, ok := LookupByName("missing"); ok {
		t.Fatalf("unexpected hit for missing")
	}
	all := All()
	if len(all) != 2 || all[0].Name != "alpha" || all[1].Name != "zeta" {
		t.Fatalf("expected sorted [alpha zeta], got %+v", all)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	withRegistry(t)
	Register(Spec{Name: "twice", Fn: constant(object.Nil())})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	Register(Spec{Name: "twice", Fn: constant(object.Nil())})
}

func TestRegisterNilHandlerPanics(t *testing.T) {
	withRegistry(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on nil handler")
		}
	}()
	Register(Spec{Name: "broken"})
}

func TestCheckedArity(t *testing.T) {
	fn := Spec{Name: "pair", Arity: 2, Fn: constant(object.Number(1))}.Checked()
	if _, err := fn([]object.Value{object.Nil()}); err == nil || err.Error() != "Expected 2 arguments but got 1." {
		t.Fatalf("expected arity error, got %v", err)
	}
	if v, err := fn([]object.Value{object.Nil(), object.Nil()}); err != nil || v.Num != 1 {
		t.Fatalf("expected 1, got %v (%v)", v, err)
	}

	variadic := Spec{Name: "any", Arity: Variadic, Fn: constant(object.Bool(true))}.Checked()
	if _, err := variadic(make([]object.Value, 5)); err != nil {
		t.Fatalf("variadic native rejected arguments: %v", err)
	}
}
