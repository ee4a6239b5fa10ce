package clock

import (
	"testing"

	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/runtime"
)

func TestClockRegistered(t *testing.T) {
	spec, ok := runtime.LookupByName("clock")
	if !ok {
		t.Fatalf("clock not registered")
	}
	first, err := spec.Checked()(nil)
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	if !first.IsNumber() || first.Num < 0 {
		t.Fatalf("expected non-negative number, got %v", first)
	}
	second, _ := spec.Checked()(nil)
	if second.Num < first.Num {
		t.Fatalf("clock went backwards: %v then %v", first, second)
	}
}

func TestClockRejectsArguments(t *testing.T) {
	spec, _ := runtime.LookupByName("clock")
	_, err := spec.Checked()([]object.Value{object.Number(1)})
	if err == nil || err.Error() != "Expected 0 arguments but got 1." {
		t.Fatalf("expected arity error, got %v", err)
	}
}
