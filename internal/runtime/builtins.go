package runtime

import (
	"fmt"
	"sort"

	"github.com/xirelogy/go-lox/internal/object"
)

// Variadic disables the arity check of a native.
const Variadic = -1

// Spec describes a host function exposed to scripts as a global.
type Spec struct {
	Name  string
	Arity int
	Fn    object.NativeFn
}

var byName = map[string]Spec{}

// Register installs a native. Plugins call it from init.
func Register(spec Spec) {
	if spec.Fn == nil {
		panic(fmt.Sprintf("native %s has nil handler", spec.Name))
	}
	if spec.Name == "" {
		panic("native registered without a name")
	}
	if _, exists := byName[spec.Name]; exists {
		panic(fmt.Sprintf("native %s already registered", spec.Name))
	}
	byName[spec.Name] = spec
}

// LookupByName finds a native by its script-visible name.
func LookupByName(name string) (Spec, bool) {
	spec, ok := byName[name]
	return spec, ok
}

// All returns all registered natives ordered by name.
func All() []Spec {
	out := make([]Spec, 0, len(byName))
	for _, spec := range byName {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Checked returns the handler wrapped with the arity check. The VM calls
// natives without checking arguments itself.
func (s Spec) Checked() object.NativeFn {
	if s.Arity == Variadic {
		return s.Fn
	}
	arity, fn := s.Arity, s.Fn
	return func(args []object.Value) (object.Value, error) {
		if len(args) != arity {
			return object.Nil(), ArityError(arity, len(args))
		}
		return fn(args)
	}
}

// ArityError is the error reported when a call passes the wrong number of
// arguments.
func ArityError(want, got int) error {
	return fmt.Errorf("Expected %d arguments but got %d.", want, got)
}
