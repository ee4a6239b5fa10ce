// Package lox embeds a Lox interpreter session in a Go program.
//
// An Interpreter owns one session: globals defined by one Interpret call are
// visible to the next, and everything allocated is released by Close.
// Separate Interpreters share nothing.
package lox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"

	"github.com/tliron/commonlog"

	_ "github.com/xirelogy/go-lox/internal/builtins"
	"github.com/xirelogy/go-lox/internal/compiler"
	"github.com/xirelogy/go-lox/internal/config"
	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/runtime"
	"github.com/xirelogy/go-lox/internal/vm"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()

	// ErrClosed is returned by operations on a closed Interpreter.
	ErrClosed = errors.New("interpreter is closed")
	// ErrUndefined is returned by Global for names that were never defined.
	ErrUndefined = errors.New("undefined global")
)

// Config tunes an Interpreter. It is the same structure the CLI loads from
// lox.toml.
type Config = config.Config

// LogConfig configures the logging backend.
type LogConfig = config.Log

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return config.Default()
}

// Result is the outcome of one Interpret call.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

func (r Result) String() string {
	return vm.Result(r).String()
}

// ExitCode maps r to the conventional process exit status: 0, 65 or 70.
func (r Result) ExitCode() int {
	return vm.Result(r).ExitCode()
}

// Diagnostic is one compile error.
type Diagnostic struct {
	Line    int
	Where   string
	Message string
}

func (d Diagnostic) String() string {
	return compiler.Diagnostic(d).String()
}

// CompileError lists every diagnostic reported while compiling a source.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	cerr := &compiler.Error{Diagnostics: make([]compiler.Diagnostic, len(e.Diagnostics))}
	for i, d := range e.Diagnostics {
		cerr.Diagnostics[i] = compiler.Diagnostic(d)
	}
	return cerr.Error()
}

// FrameTrace describes a single frame in a runtime error. Function is empty
// for the top-level script.
type FrameTrace struct {
	Function string
	Line     int
	IP       int
}

func (f FrameTrace) String() string {
	return vm.FrameInfo(f).String()
}

// RuntimeError is an error raised while executing a script. Stack lists the
// active frames innermost first.
type RuntimeError struct {
	Message string
	Stack   []FrameTrace
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Trace renders the message followed by one line per frame, as written to
// the error stream.
func (e *RuntimeError) Trace() string {
	return e.toVM().Trace()
}

func (e *RuntimeError) toVM() *vm.RuntimeError {
	rerr := &vm.RuntimeError{Message: e.Message, Stack: make([]vm.FrameInfo, len(e.Stack))}
	for i, fr := range e.Stack {
		rerr.Stack[i] = vm.FrameInfo(fr)
	}
	return rerr
}

func convertError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		out := &CompileError{Diagnostics: make([]Diagnostic, len(cerr.Diagnostics))}
		for i, d := range cerr.Diagnostics {
			out.Diagnostics[i] = Diagnostic(d)
		}
		return out
	}
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		out := &RuntimeError{Message: rerr.Message, Stack: make([]FrameTrace, len(rerr.Stack))}
		for i, fr := range rerr.Stack {
			out.Stack[i] = FrameTrace(fr)
		}
		return out
	}
	return err
}

// ArgError reports a host function argument of the wrong type.
type ArgError struct {
	Index int
	Want  string
	Got   string
}

func (e ArgError) Error() string {
	return fmt.Sprintf("Argument %d must be a %s, got %s.", e.Index+1, e.Want, e.Got)
}

// Options configures a new Interpreter.
type Options struct {
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
	// Debug receives the bytecode dump and the execution trace when Config
	// enables them. Defaults to Stderr.
	Debug  io.Writer
	Config *Config // defaults to DefaultConfig()
}

// Interpreter is one Lox session. It is safe for use by multiple goroutines;
// calls are serialized.
type Interpreter struct {
	mu     sync.Mutex
	vm     *vm.VM
	closed bool
	log    commonlog.Logger
}

// New creates a session with the builtin natives installed.
func New(opts Options) *Interpreter {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	debug := opts.Debug
	if debug == nil {
		debug = stderr
	}

	machine := vm.New()
	machine.SetOutput(stdout, stderr)
	machine.SetMaxFrames(cfg.MaxFrames)
	if cfg.PrintCode {
		machine.SetPrintCode(debug)
	}
	if cfg.TraceExecution {
		machine.SetTraceHook(vm.NewExecutionTracer(debug))
	}
	return &Interpreter{vm: machine, log: commonlog.GetLogger("lox")}
}

// Interpret compiles and runs source in this session. Compile diagnostics and
// runtime stack traces are also written to the error stream. The error is a
// *CompileError or *RuntimeError.
func (in *Interpreter) Interpret(source string) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ResultRuntimeError, ErrClosed
	}
	res, err := in.vm.Interpret(source)
	return Result(res), convertError(err)
}

// DefineFunction binds a Go function to a global name. The script calls it
// with exactly as many arguments as fn has parameters.
// Supported signatures:
//
//	func(...) T
//	func(...) (T, error)
//	func(...) error
//	func(...)
//
// Parameters may be bool, string, any numeric kind, or interface{}; T may be
// any of those or nil. A returned error becomes a runtime error with its
// message.
func (in *Interpreter) DefineFunction(name string, fn any) error {
	if name == "" {
		return errors.New("empty function name")
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrClosed
	}
	native, err := in.nativeFromFunc(name, fn)
	if err != nil {
		return fmt.Errorf("define function %s: %w", name, err)
	}
	in.vm.DefineNative(name, native)
	in.log.Debugf("defined host function %s", name)
	return nil
}

// Global returns the Go representation of a global variable: nil, bool,
// float64 or string. Functions are reported by their printed form.
func (in *Interpreter) Global(name string) (any, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil, ErrClosed
	}
	v, ok := in.vm.Global(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	return unmarshalToGo(v), nil
}

// Disassemble writes the bytecode of every global function, ordered by name.
func (in *Interpreter) Disassemble(w io.Writer) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrClosed
	}
	return in.vm.Disassemble(w)
}

// Close releases the session and returns the number of objects freed.
// Closing twice is a no-op.
func (in *Interpreter) Close() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return 0
	}
	in.closed = true
	return in.vm.Free()
}

func (in *Interpreter) nativeFromFunc(name string, fn any) (object.NativeFn, error) {
	if fn == nil {
		return nil, errors.New("nil function")
	}
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, fmt.Errorf("value of %s is not a function", name)
	}
	if rt.IsVariadic() {
		return nil, fmt.Errorf("function %s must not be variadic", name)
	}
	if rt.NumOut() > 2 {
		return nil, fmt.Errorf("function %s has too many return values (max 2)", name)
	}
	retValIndex := -1
	retErrIndex := -1
	switch rt.NumOut() {
	case 0:
	case 1:
		if rt.Out(0) == errorType {
			retErrIndex = 0
		} else {
			retValIndex = 0
		}
	case 2:
		if rt.Out(1) != errorType {
			return nil, fmt.Errorf("function %s second return value must be error", name)
		}
		retValIndex = 0
		retErrIndex = 1
	}

	for i := 0; i < rt.NumIn(); i++ {
		if err := checkParamType(rt.In(i)); err != nil {
			return nil, fmt.Errorf("function %s parameter %d: %w", name, i+1, err)
		}
	}

	return func(args []object.Value) (object.Value, error) {
		if len(args) != rt.NumIn() {
			return object.Nil(), runtime.ArityError(rt.NumIn(), len(args))
		}
		inputs := make([]reflect.Value, rt.NumIn())
		for i := range inputs {
			val, err := convertValue(args[i], rt.In(i))
			if err != nil {
				var argErr ArgError
				if errors.As(err, &argErr) {
					argErr.Index = i
					return object.Nil(), argErr
				}
				return object.Nil(), err
			}
			inputs[i] = val
		}
		results := rv.Call(inputs)
		if retErrIndex >= 0 && !results[retErrIndex].IsNil() {
			return object.Nil(), results[retErrIndex].Interface().(error)
		}
		if retValIndex >= 0 {
			return in.marshalGoValue(results[retValIndex].Interface())
		}
		return object.Nil(), nil
	}, nil
}

// checkParamType rejects parameter types assignValue cannot fill. Interface
// parameters must be empty interfaces, since a Lox value carries no methods.
func checkParamType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() > 0 {
			return fmt.Errorf("interface type %s has methods", t)
		}
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
	default:
		return fmt.Errorf("unsupported parameter kind %s", t.Kind())
	}
	return nil
}

// marshalGoValue converts a Go result into a Lox value. Strings are interned
// in the session heap.
func (in *Interpreter) marshalGoValue(val any) (object.Value, error) {
	switch v := val.(type) {
	case nil:
		return object.Nil(), nil
	case bool:
		return object.Bool(v), nil
	case float64:
		return object.Number(v), nil
	case int:
		return object.Number(float64(v)), nil
	case string:
		return object.FromObj(in.vm.Heap().CopyString(v)), nil
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return object.Nil(), nil
		}
		return in.marshalGoValue(rv.Elem().Interface())
	case reflect.Bool:
		return object.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return object.Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return object.Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return object.Number(rv.Float()), nil
	case reflect.String:
		return object.FromObj(in.vm.Heap().CopyString(rv.String())), nil
	}
	return object.Nil(), fmt.Errorf("unsupported value type %T", val)
}

// unmarshalToGo converts a Lox value into nil, bool, float64 or string.
func unmarshalToGo(v object.Value) any {
	switch v.Kind {
	case object.KindNil:
		return nil
	case object.KindBool:
		return v.B
	case object.KindNumber:
		return v.Num
	default:
		if s := v.AsString(); s != nil {
			return s.Chars
		}
		return v.String()
	}
}

func convertValue(src object.Value, targetType reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(targetType)
	if err := assignValue(src, ptr.Elem()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func assignValue(src object.Value, dst reflect.Value) error {
	switch dst.Kind() {
	case reflect.Interface:
		raw := unmarshalToGo(src)
		if raw == nil {
			return nil
		}
		dst.Set(reflect.ValueOf(raw))
		return nil
	case reflect.Bool:
		if !src.IsBool() {
			return ArgError{Want: "boolean", Got: object.TypeName(src)}
		}
		dst.SetBool(src.B)
		return nil
	case reflect.String:
		s := src.AsString()
		if s == nil {
			return ArgError{Want: "string", Got: object.TypeName(src)}
		}
		dst.SetString(s.Chars)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !src.IsNumber() {
			return ArgError{Want: "number", Got: object.TypeName(src)}
		}
		dst.SetInt(int64(src.Num))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if !src.IsNumber() {
			return ArgError{Want: "number", Got: object.TypeName(src)}
		}
		dst.SetUint(uint64(src.Num))
		return nil
	case reflect.Float32, reflect.Float64:
		if !src.IsNumber() {
			return ArgError{Want: "number", Got: object.TypeName(src)}
		}
		dst.SetFloat(src.Num)
		return nil
	default:
		return fmt.Errorf("unsupported parameter kind %s", dst.Kind())
	}
}
