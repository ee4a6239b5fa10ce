package vm

import (
	"fmt"
	"strings"

	"github.com/xirelogy/go-lox/internal/object"
)

// TraceInfo describes a single instruction dispatch for debugging/tracing.
// Stack aliases the live value stack and is only valid during the hook call.
type TraceInfo struct {
	Op       byte
	Function string
	Line     int
	IP       int
	Chunk    *object.Chunk
	Stack    []object.Value
}

// TraceHook observes instruction dispatch for debugging/profiling.
type TraceHook func(TraceInfo)

// FrameInfo captures one call frame at the time of an error.
type FrameInfo struct {
	Function string // empty for the top-level script
	Line     int
	IP       int
}

func (f FrameInfo) String() string {
	if f.Function == "" {
		return fmt.Sprintf("[line %d] in script", f.Line)
	}
	return fmt.Sprintf("[line %d] in %s()", f.Line, f.Function)
}

// RuntimeError aborts a run. Stack lists the active frames innermost first.
type RuntimeError struct {
	Message string
	Stack   []FrameInfo
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Trace renders the message followed by one line per frame.
func (e *RuntimeError) Trace() string {
	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteByte('\n')
	for _, fr := range e.Stack {
		b.WriteString(fr.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// runtimeError reports a failure at the current instruction, writes the
// stack trace and resets the stacks. Globals survive, so a REPL session can
// continue after an error.
func (vm *VM) runtimeError(format string, args ...interface{}) (Result, error) {
	err := &RuntimeError{
		Message: fmt.Sprintf(format, args...),
		Stack:   vm.stackTrace(),
	}
	fmt.Fprint(vm.stderr, err.Trace())
	vm.log.Debugf("runtime error: %s (depth %d)", err.Message, len(err.Stack))
	vm.resetStack()
	return ResultRuntimeError, err
}

func (vm *VM) stackTrace() []FrameInfo {
	trace := make([]FrameInfo, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		trace = append(trace, frameInfo(&vm.frames[i]))
	}
	return trace
}

// frameInfo locates the instruction a frame is executing. ip has already
// moved past the opcode, so the instruction starts one byte earlier.
func frameInfo(fr *frame) FrameInfo {
	offset := fr.ip - 1
	if offset < 0 {
		offset = 0
	}
	info := FrameInfo{IP: offset}
	if fr.fn.Name != nil {
		info.Function = fr.fn.Name.Chars
	}
	if offset < len(fr.fn.Chunk.Lines) {
		info.Line = fr.fn.Chunk.Lines[offset]
	}
	return info
}

func (vm *VM) trace(fr *frame) {
	line := 0
	if fr.ip < len(fr.fn.Chunk.Lines) {
		line = fr.fn.Chunk.Lines[fr.ip]
	}
	vm.traceHook(TraceInfo{
		Op:       fr.fn.Chunk.Code[fr.ip],
		Function: fr.fn.DisplayName(),
		Line:     line,
		IP:       fr.ip,
		Chunk:    &fr.fn.Chunk,
		Stack:    vm.stack[:vm.sp],
	})
}
