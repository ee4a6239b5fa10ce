package vm_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	_ "github.com/xirelogy/go-lox/internal/builtins"
	"github.com/xirelogy/go-lox/internal/compiler"
	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/vm"
)

type session struct {
	machine *vm.VM
	stdout  bytes.Buffer
	stderr  bytes.Buffer
}

func newSession(t *testing.T) *session {
	t.Helper()
	s := &session{machine: vm.New()}
	s.machine.SetOutput(&s.stdout, &s.stderr)
	t.Cleanup(func() { s.machine.Free() })
	return s
}

func (s *session) run(t *testing.T, src string) (vm.Result, error) {
	t.Helper()
	s.stdout.Reset()
	s.stderr.Reset()
	return s.machine.Interpret(src)
}

func runOK(t *testing.T, src string) string {
	t.Helper()
	s := newSession(t)
	res, err := s.run(t, src)
	if res != vm.ResultOK || err != nil {
		t.Fatalf("expected ok, got %v: %v\nstderr:\n%s", res, err, s.stderr.String())
	}
	if s.machine.StackDepth() != 0 {
		t.Fatalf("stack not empty after run: %d", s.machine.StackDepth())
	}
	return s.stdout.String()
}

func runtimeFailure(t *testing.T, src string) (*vm.RuntimeError, string) {
	t.Helper()
	s := newSession(t)
	res, err := s.run(t, src)
	if res != vm.ResultRuntimeError {
		t.Fatalf("expected runtime error, got %v (%v)", res, err)
	}
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *vm.RuntimeError, got %T", err)
	}
	if s.machine.StackDepth() != 0 {
		t.Fatalf("stack not reset after error: %d", s.machine.StackDepth())
	}
	return rerr, s.stderr.String()
}

func TestVMArithmeticPrecedence(t *testing.T) {
	out := runOK(t, "print 1 + 2 * 3;\nprint (1 + 2) * 3;")
	if out != "7\n9\n" {
		t.Fatalf("expected 7 and 9, got %q", out)
	}
}

func TestVMPrintFormats(t *testing.T) {
	src := `
print nil;
print true;
print !nil;
print 10 / 4;
print -3;
print 1 == 1;
print "a" == "a";
print 1 == "1";
print 2 >= 2;
print 3 <= 2;
print 1 != 2;
fun f() {}
print f;
print clock;
`
	want := "nil\ntrue\ntrue\n2.5\n-3\ntrue\ntrue\nfalse\ntrue\nfalse\ntrue\n<fn f>\n<native fn>\n"
	if out := runOK(t, src); out != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, out)
	}
}

func TestVMNonFiniteNumbers(t *testing.T) {
	out := runOK(t, "print 1 / 0;\nprint -1 / 0;\nprint 0 / 0;")
	if out != "inf\n-inf\nnan\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVMStringConcatenationInterns(t *testing.T) {
	out := runOK(t, `
var a = "con" + "cat";
var b = "concat";
print a;
print a == b;
`)
	if out != "concat\ntrue\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVMLocalsAndBlocks(t *testing.T) {
	out := runOK(t, `
var a = "global";
{
  var a = "outer";
  {
    var a = "inner";
    print a;
  }
  print a;
}
print a;
`)
	if out != "inner\nouter\nglobal\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVMLexicalScopingError(t *testing.T) {
	rerr, stderr := runtimeFailure(t, "{ var x = 1; } print x;")
	if rerr.Message != "Undefined variable 'x'." {
		t.Fatalf("unexpected message %q", rerr.Message)
	}
	if stderr != "Undefined variable 'x'.\n[line 1] in script\n" {
		t.Fatalf("unexpected trace %q", stderr)
	}
}

func TestVMAssignUndefinedGlobal(t *testing.T) {
	s := newSession(t)
	res, _ := s.run(t, "y = 1;")
	if res != vm.ResultRuntimeError {
		t.Fatalf("expected runtime error, got %v", res)
	}
	if _, ok := s.machine.Global("y"); ok {
		t.Fatalf("assignment must not create the global")
	}
	if !strings.HasPrefix(s.stderr.String(), "Undefined variable 'y'.") {
		t.Fatalf("unexpected stderr %q", s.stderr.String())
	}
}

func TestVMRecursiveFactorial(t *testing.T) {
	src := `
fun fact(n) {
  if (n <= 1) return 1;
  return n * fact(n - 1);
}
print fact(10);
`
	if out := runOK(t, src); out != "3628800\n" {
		t.Fatalf("expected 3628800, got %q", out)
	}
}

func TestVMArityMismatch(t *testing.T) {
	src := `
fun fact(n) {
  if (n <= 1) return 1;
  return n * fact(n - 1);
}
print fact(1, 2);
`
	rerr, stderr := runtimeFailure(t, src)
	if rerr.Message != "Expected 1 arguments but got 2." {
		t.Fatalf("unexpected message %q", rerr.Message)
	}
	if stderr != "Expected 1 arguments but got 2.\n[line 6] in script\n" {
		t.Fatalf("unexpected trace %q", stderr)
	}
}

func TestVMStackTraceNamesFrames(t *testing.T) {
	src := `fun inner() {
  return 1 + nil;
}
fun outer() {
  inner();
}
outer();`
	rerr, stderr := runtimeFailure(t, src)
	want := "Operands must be two numbers or two strings.\n" +
		"[line 2] in inner()\n" +
		"[line 5] in outer()\n" +
		"[line 7] in script\n"
	if stderr != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, stderr)
	}
	if len(rerr.Stack) != 3 || rerr.Stack[0].Function != "inner" || rerr.Stack[2].Function != "" {
		t.Fatalf("unexpected frames %+v", rerr.Stack)
	}
	if rerr.Trace() != want {
		t.Fatalf("Trace() differs from stderr:\n%s", rerr.Trace())
	}
}

func TestVMShortCircuit(t *testing.T) {
	src := `
fun sideEffect() {
  print "called";
  return true;
}
print false and sideEffect();
print true or sideEffect();
print nil or "fallback";
print 1 and 2;
`
	out := runOK(t, src)
	if strings.Contains(out, "called") {
		t.Fatalf("right operand evaluated: %q", out)
	}
	if out != "false\ntrue\nfallback\n2\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVMStackOverflow(t *testing.T) {
	rerr, stderr := runtimeFailure(t, "fun f() { f(); }\nf();")
	if rerr.Message != "Stack overflow." {
		t.Fatalf("unexpected message %q", rerr.Message)
	}
	if len(rerr.Stack) != vm.DefaultMaxFrames {
		t.Fatalf("expected %d frames in trace, got %d", vm.DefaultMaxFrames, len(rerr.Stack))
	}
	if !strings.HasPrefix(stderr, "Stack overflow.\n[line 1] in f()\n") {
		t.Fatalf("unexpected trace %q", stderr[:min(len(stderr), 80)])
	}
}

func TestVMMaxFrames(t *testing.T) {
	s := newSession(t)
	s.machine.SetMaxFrames(8)
	res, err := s.run(t, `
fun depth(n) { if (n == 0) return 0; return depth(n - 1); }
print depth(6);
depth(8);
`)
	if res != vm.ResultRuntimeError {
		t.Fatalf("expected overflow, got %v", res)
	}
	if s.stdout.String() != "0\n" {
		t.Fatalf("expected the shallow call to succeed, got %q", s.stdout.String())
	}
	if err.Error() != "Stack overflow." {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVMRuntimeTypeErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print -\"a\";", "Operand must be a number."},
		{"print 1 < \"a\";", "Operands must be numbers."},
		{"print \"a\" * 2;", "Operands must be numbers."},
		{"print \"a\" + 1;", "Operands must be two numbers or two strings."},
		{"var x = 1; x();", "Can only call functions and classes."},
		{"\"str\"();", "Can only call functions and classes."},
		{"clock(1);", "Expected 0 arguments but got 1."},
	}
	for _, tt := range tests {
		rerr, _ := runtimeFailure(t, tt.src)
		if rerr.Message != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.src, tt.want, rerr.Message)
		}
	}
}

func TestVMControlFlow(t *testing.T) {
	src := `
var sum = 0;
for (var i = 0; i < 5; i = i + 1) {
  if (i == 2) {
    sum = sum + 100;
  } else {
    sum = sum + i;
  }
}
print sum;
var n = 3;
while (n > 0) {
  print n;
  n = n - 1;
}
for (;;) { print "once"; return; }
`
	// return at top level is rejected, so the infinite loop must not compile
	s := newSession(t)
	res, err := s.run(t, src)
	if res != vm.ResultCompileError {
		t.Fatalf("expected compile error, got %v", res)
	}
	var cerr *compiler.Error
	if !errors.As(err, &cerr) || len(cerr.Diagnostics) != 1 {
		t.Fatalf("expected a single diagnostic, got %v", err)
	}

	out := runOK(t, strings.Replace(src, `for (;;) { print "once"; return; }`, "", 1))
	if out != "108\n3\n2\n1\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVMCompileErrorReported(t *testing.T) {
	s := newSession(t)
	res, err := s.run(t, "print 1 +;")
	if res != vm.ResultCompileError || err == nil {
		t.Fatalf("expected compile error, got %v", res)
	}
	if s.stderr.String() != "[line 1] Error at ';': Expect expression.\n" {
		t.Fatalf("unexpected stderr %q", s.stderr.String())
	}
	if res.ExitCode() != 65 || vm.ResultRuntimeError.ExitCode() != 70 || vm.ResultOK.ExitCode() != 0 {
		t.Fatalf("unexpected exit code mapping")
	}
}

func TestVMGlobalsSurviveErrors(t *testing.T) {
	s := newSession(t)
	if res, _ := s.run(t, "var counter = 1;"); res != vm.ResultOK {
		t.Fatalf("define failed: %v", res)
	}
	if res, _ := s.run(t, "counter = counter + 1; undefinedFn();"); res != vm.ResultRuntimeError {
		t.Fatalf("expected runtime error, got %v", res)
	}
	if res, _ := s.run(t, "print counter;"); res != vm.ResultOK {
		t.Fatalf("session unusable after error: %v", res)
	}
	if s.stdout.String() != "2\n" {
		t.Fatalf("expected 2, got %q", s.stdout.String())
	}
}

func TestVMIndependentSessions(t *testing.T) {
	a := newSession(t)
	b := newSession(t)
	if res, _ := a.run(t, `var shared = "a";`); res != vm.ResultOK {
		t.Fatalf("session a failed")
	}
	if res, _ := b.run(t, "print shared;"); res != vm.ResultRuntimeError {
		t.Fatalf("session b must not see a's globals, got %v", res)
	}
	if a.machine.Heap() == b.machine.Heap() {
		t.Fatalf("sessions share a heap")
	}
}

func TestVMDefineNative(t *testing.T) {
	s := newSession(t)
	var seen []string
	s.machine.DefineNative("record", func(args []object.Value) (object.Value, error) {
		for _, a := range args {
			seen = append(seen, a.String())
		}
		return object.Number(float64(len(args))), nil
	})
	s.machine.DefineNative("fail", func(args []object.Value) (object.Value, error) {
		return object.Nil(), fmt.Errorf("native failure")
	})
	if res, err := s.run(t, `print record(1, "two", nil);`); res != vm.ResultOK {
		t.Fatalf("native call failed: %v", err)
	}
	if s.stdout.String() != "3\n" || strings.Join(seen, ",") != "1,two,nil" {
		t.Fatalf("unexpected native behavior: out=%q seen=%v", s.stdout.String(), seen)
	}
	res, err := s.run(t, "fail();")
	if res != vm.ResultRuntimeError || err.Error() != "native failure" {
		t.Fatalf("expected native error to surface, got %v %v", res, err)
	}
}

func TestVMTraceHook(t *testing.T) {
	s := newSession(t)
	var ops []byte
	s.machine.SetTraceHook(func(info vm.TraceInfo) {
		ops = append(ops, info.Op)
		if info.Function != "script" {
			t.Fatalf("unexpected frame %q", info.Function)
		}
	})
	if res, _ := s.run(t, "print 1;"); res != vm.ResultOK {
		t.Fatalf("run failed")
	}
	want := []byte{compiler.OP_CONSTANT, compiler.OP_PRINT, compiler.OP_NIL, compiler.OP_RETURN}
	if !bytes.Equal(ops, want) {
		t.Fatalf("expected ops %v, got %v", want, ops)
	}
}

func TestVMExecutionTracer(t *testing.T) {
	s := newSession(t)
	var trace bytes.Buffer
	s.machine.SetTraceHook(vm.NewExecutionTracer(&trace))
	if res, _ := s.run(t, "print 1 + 2;"); res != vm.ResultOK {
		t.Fatalf("run failed")
	}
	out := trace.String()
	if !strings.Contains(out, "0000    1 OP_CONSTANT         0 '1'") {
		t.Fatalf("missing instruction line:\n%s", out)
	}
	if !strings.Contains(out, "[ <script> ][ 1 ][ 2 ]") {
		t.Fatalf("missing stack snapshot:\n%s", out)
	}
}

func TestVMPrintCode(t *testing.T) {
	s := newSession(t)
	var dump bytes.Buffer
	s.machine.SetPrintCode(&dump)
	if res, _ := s.run(t, "fun f() { return 1; }"); res != vm.ResultOK {
		t.Fatalf("run failed")
	}
	if !strings.Contains(dump.String(), "== f ==") {
		t.Fatalf("expected dump of f, got:\n%s", dump.String())
	}

	var listing bytes.Buffer
	if err := s.machine.Disassemble(&listing); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if !strings.HasPrefix(listing.String(), "== f ==") {
		t.Fatalf("expected global f listed, got:\n%s", listing.String())
	}
}

func TestVMFree(t *testing.T) {
	machine := vm.New()
	machine.SetOutput(&bytes.Buffer{}, &bytes.Buffer{})
	if res, _ := machine.Interpret(`var s = "a" + "b";`); res != vm.ResultOK {
		t.Fatalf("run failed")
	}
	if machine.Globals() != 2 { // clock and s
		t.Fatalf("expected 2 globals, got %d", machine.Globals())
	}
	if n := machine.Free(); n == 0 {
		t.Fatalf("expected objects to be released")
	}
	if machine.Globals() != 0 || machine.Heap().Objects() != 0 {
		t.Fatalf("session not torn down")
	}
}
