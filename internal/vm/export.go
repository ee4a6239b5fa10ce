package vm

import (
	"github.com/xirelogy/go-lox/internal/heap"
	"github.com/xirelogy/go-lox/internal/object"
)

// Globals returns the number of defined globals, natives included.
func (vm *VM) Globals() int {
	return vm.globals.Len()
}

// Global reads a global variable by name.
func (vm *VM) Global(name string) (object.Value, bool) {
	key := vm.heap.FindString(name)
	if key == nil {
		return object.Nil(), false
	}
	return vm.globals.Get(key)
}

// Heap exposes the session's object owner.
func (vm *VM) Heap() *heap.Heap {
	return vm.heap
}

// StackDepth reports the number of live values on the stack. It is zero
// between Interpret calls.
func (vm *VM) StackDepth() int {
	return vm.sp
}
