package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/compiler"
	"github.com/xirelogy/go-lox/internal/heap"
	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/runtime"
	"github.com/xirelogy/go-lox/internal/table"
)

// Result is the outcome of one Interpret call.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ExitCode maps r to the conventional process exit status.
func (r Result) ExitCode() int {
	switch r {
	case ResultCompileError:
		return 65
	case ResultRuntimeError:
		return 70
	default:
		return 0
	}
}

const (
	DefaultMaxFrames = 64
	slotsPerFrame    = 256
)

type frame struct {
	fn   *object.Function
	ip   int
	base int // stack index of the callee; locals start at base+1
}

// VM executes compiled Lox bytecode. A VM is one interpreter session: the
// globals and every object it allocates live until Free. Separate VMs share
// nothing.
type VM struct {
	stack     []object.Value
	sp        int
	frames    []frame
	maxFrames int

	globals table.Table
	heap    *heap.Heap

	stdout    io.Writer
	stderr    io.Writer
	printCode io.Writer
	traceHook TraceHook
	log       commonlog.Logger
}

// New constructs a session with the registered natives installed as globals.
func New() *VM {
	vm := &VM{
		heap:   heap.New(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		log:    commonlog.GetLogger("lox.vm"),
	}
	vm.allocate(DefaultMaxFrames)
	for _, spec := range runtime.All() {
		vm.DefineNative(spec.Name, spec.Checked())
	}
	return vm
}

func (vm *VM) allocate(maxFrames int) {
	vm.maxFrames = maxFrames
	vm.stack = make([]object.Value, maxFrames*slotsPerFrame)
	vm.frames = make([]frame, 0, maxFrames)
	vm.sp = 0
}

// SetOutput redirects print output and diagnostics. A nil writer keeps the
// current one.
func (vm *VM) SetOutput(stdout, stderr io.Writer) {
	if stdout != nil {
		vm.stdout = stdout
	}
	if stderr != nil {
		vm.stderr = stderr
	}
}

// SetMaxFrames changes the call depth limit. The value stack is resized to
// match, so it must not be called while a script is running.
func (vm *VM) SetMaxFrames(n int) {
	if n <= 0 {
		n = DefaultMaxFrames
	}
	vm.allocate(n)
}

// SetTraceHook registers a callback for instruction-level tracing.
func (vm *VM) SetTraceHook(h TraceHook) {
	vm.traceHook = h
}

// SetPrintCode makes the compiler dump each compiled function to w. A nil
// writer turns the dump off.
func (vm *VM) SetPrintCode(w io.Writer) {
	vm.printCode = w
}

// DefineNative binds a host function to a global name.
func (vm *VM) DefineNative(name string, fn object.NativeFn) {
	native := vm.heap.NewNative(name, fn)
	vm.globals.Set(vm.heap.CopyString(name), object.FromObj(native))
}

// Interpret compiles and runs source. Compile diagnostics and runtime stack
// traces are written to the error writer; the returned error carries the
// same information as a *compiler.Error or *RuntimeError.
func (vm *VM) Interpret(source string) (Result, error) {
	var opts []compiler.Option
	if vm.printCode != nil {
		opts = append(opts, compiler.WithPrintCode(vm.printCode))
	}
	fn, err := compiler.Compile(source, vm.heap, opts...)
	if err != nil {
		var cerr *compiler.Error
		if errors.As(err, &cerr) {
			for _, d := range cerr.Diagnostics {
				fmt.Fprintln(vm.stderr, d.String())
			}
		}
		return ResultCompileError, err
	}

	vm.push(object.FromObj(fn))
	if err := vm.call(fn, 0); err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	return vm.run()
}

// Free tears the session down and returns the number of objects released.
func (vm *VM) Free() int {
	vm.resetStack()
	vm.globals.Clear()
	return vm.heap.Free()
}

func (vm *VM) run() (Result, error) {
	fr := vm.currentFrame()
	for {
		if vm.traceHook != nil {
			vm.trace(fr)
		}
		if vm.sp >= len(vm.stack) {
			return vm.runtimeError("Stack overflow.")
		}

		op := fr.fn.Chunk.Code[fr.ip]
		fr.ip++
		switch op {
		case bytecode.OP_CONSTANT:
			vm.push(vm.readConstant(fr))
		case bytecode.OP_NIL:
			vm.push(object.Nil())
		case bytecode.OP_TRUE:
			vm.push(object.Bool(true))
		case bytecode.OP_FALSE:
			vm.push(object.Bool(false))
		case bytecode.OP_POP:
			vm.pop()
		case bytecode.OP_GET_LOCAL:
			slot := int(vm.readByte(fr))
			vm.push(vm.stack[fr.base+slot])
		case bytecode.OP_SET_LOCAL:
			slot := int(vm.readByte(fr))
			vm.stack[fr.base+slot] = vm.peek(0)
		case bytecode.OP_GET_GLOBAL:
			name := vm.readString(fr)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case bytecode.OP_DEFINE_GLOBAL:
			name := vm.readString(fr)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OP_SET_GLOBAL:
			name := vm.readString(fr)
			if vm.globals.Set(name, vm.peek(0)) {
				// assignment never creates a global
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
		case bytecode.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(object.Equal(a, b)))
		case bytecode.OP_GREATER, bytecode.OP_LESS,
			bytecode.OP_SUBTRACT, bytecode.OP_MULTIPLY, bytecode.OP_DIVIDE:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().Num
			a := vm.pop().Num
			vm.push(numericOp(op, a, b))
		case bytecode.OP_ADD:
			switch {
			case vm.peek(0).IsString() && vm.peek(1).IsString():
				vm.concatenate()
			case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
				b := vm.pop().Num
				a := vm.pop().Num
				vm.push(object.Number(a + b))
			default:
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}
		case bytecode.OP_NOT:
			vm.push(object.Bool(object.Falsey(vm.pop())))
		case bytecode.OP_NEGATE:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.stack[vm.sp-1] = object.Number(-vm.stack[vm.sp-1].Num)
		case bytecode.OP_PRINT:
			fmt.Fprintln(vm.stdout, vm.pop().String())
		case bytecode.OP_JUMP:
			off := vm.readShort(fr)
			fr.ip += off
		case bytecode.OP_JUMP_IF_FALSE:
			off := vm.readShort(fr)
			if object.Falsey(vm.peek(0)) {
				fr.ip += off
			}
		case bytecode.OP_LOOP:
			off := vm.readShort(fr)
			fr.ip -= off
		case bytecode.OP_CALL:
			argc := int(vm.readByte(fr))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return vm.runtimeError("%s", err.Error())
			}
			fr = vm.currentFrame()
		case bytecode.OP_RETURN:
			result := vm.pop()
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop() // the script function
				return ResultOK, nil
			}
			vm.sp = fr.base
			vm.push(result)
			fr = vm.currentFrame()
		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func numericOp(op byte, a, b float64) object.Value {
	switch op {
	case bytecode.OP_GREATER:
		return object.Bool(a > b)
	case bytecode.OP_LESS:
		return object.Bool(a < b)
	case bytecode.OP_SUBTRACT:
		return object.Number(a - b)
	case bytecode.OP_MULTIPLY:
		return object.Number(a * b)
	default:
		return object.Number(a / b)
	}
}

// concatenate replaces the two strings on top of the stack with their
// interned concatenation.
func (vm *VM) concatenate() {
	b := vm.peek(0).AsString()
	a := vm.peek(1).AsString()
	buf := make([]byte, 0, len(a.Chars)+len(b.Chars))
	buf = append(buf, a.Chars...)
	buf = append(buf, b.Chars...)
	result := vm.heap.TakeString(buf)
	vm.pop()
	vm.pop()
	vm.push(object.FromObj(result))
}

func (vm *VM) callValue(callee object.Value, argc int) error {
	if callee.IsObj() {
		switch fn := callee.Obj.(type) {
		case *object.Function:
			return vm.call(fn, argc)
		case *object.Native:
			args := vm.stack[vm.sp-argc : vm.sp]
			result, err := fn.Fn(args)
			if err != nil {
				return err
			}
			vm.sp -= argc + 1
			vm.push(result)
			return nil
		}
	}
	return errors.New("Can only call functions and classes.")
}

func (vm *VM) call(fn *object.Function, argc int) error {
	if argc != fn.Arity {
		return runtime.ArityError(fn.Arity, argc)
	}
	if len(vm.frames) == vm.maxFrames {
		return errors.New("Stack overflow.")
	}
	vm.frames = append(vm.frames, frame{
		fn:   fn,
		ip:   0,
		base: vm.sp - argc - 1,
	})
	return nil
}

func (vm *VM) currentFrame() *frame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frames = vm.frames[:0]
}

func (vm *VM) push(v object.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() object.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) readByte(fr *frame) byte {
	b := fr.fn.Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readShort(fr *frame) int {
	v := fr.fn.Chunk.ReadUint16(fr.ip)
	fr.ip += 2
	return v
}

func (vm *VM) readConstant(fr *frame) object.Value {
	return fr.fn.Chunk.Constants[vm.readByte(fr)]
}

func (vm *VM) readString(fr *frame) *object.String {
	return vm.readConstant(fr).AsString()
}
