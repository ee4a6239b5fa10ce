package vm

import (
	"fmt"
	"io"
	"sort"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/object"
)

// Disassemble emits assembly-style bytecode output for every function bound
// to a global, ordered by name.
func (vm *VM) Disassemble(w io.Writer) error {
	if vm == nil {
		return fmt.Errorf("nil VM")
	}
	if w == nil {
		return fmt.Errorf("nil writer")
	}
	names := make([]string, 0, vm.globals.Len())
	funcs := make(map[string]*object.Function)
	vm.globals.Each(func(key *object.String, v object.Value) bool {
		if fn, ok := v.Obj.(*object.Function); ok && v.IsObj() {
			names = append(names, key.Chars)
			funcs[key.Chars] = fn
		}
		return true
	})
	sort.Strings(names)
	dis := bytecode.NewDisassembler(w)
	for _, name := range names {
		if err := dis.DisassembleFunction(funcs[name]); err != nil {
			return err
		}
	}
	return nil
}

// NewExecutionTracer returns a hook that prints the value stack and the
// instruction about to execute, one instruction per pair of lines.
func NewExecutionTracer(w io.Writer) TraceHook {
	dis := bytecode.NewDisassembler(w)
	return func(info TraceInfo) {
		fmt.Fprint(w, "          ")
		for _, v := range info.Stack {
			fmt.Fprintf(w, "[ %s ]", v.String())
		}
		fmt.Fprintln(w)
		if _, err := dis.DisassembleInstruction(info.Chunk, info.IP); err != nil {
			fmt.Fprintf(w, "%04d <%s>\n", info.IP, err.Error())
		}
	}
}
