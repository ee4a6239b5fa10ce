package lox

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type outputs struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	debug  bytes.Buffer
}

func newInterpreter(t *testing.T, cfg *Config) (*Interpreter, *outputs) {
	t.Helper()
	out := &outputs{}
	in := New(Options{Stdout: &out.stdout, Stderr: &out.stderr, Debug: &out.debug, Config: cfg})
	t.Cleanup(func() { in.Close() })
	return in, out
}

func TestInterpretPrints(t *testing.T) {
	in, out := newInterpreter(t, nil)
	res, err := in.Interpret(`print "hello" + ", " + "world";`)
	if res != ResultOK || err != nil {
		t.Fatalf("unexpected result %v: %v", res, err)
	}
	if out.stdout.String() != "hello, world\n" {
		t.Fatalf("unexpected output %q", out.stdout.String())
	}
}

func TestResultExitCodes(t *testing.T) {
	tests := []struct {
		src  string
		want Result
		code int
	}{
		{"print 1;", ResultOK, 0},
		{"print ;", ResultCompileError, 65},
		{"print -nil;", ResultRuntimeError, 70},
	}
	for _, tt := range tests {
		in, _ := newInterpreter(t, nil)
		res, _ := in.Interpret(tt.src)
		if res != tt.want || res.ExitCode() != tt.code {
			t.Fatalf("%s: expected %v (%d), got %v (%d)", tt.src, tt.want, tt.code, res, res.ExitCode())
		}
	}
}

func TestCompileErrorConverted(t *testing.T) {
	in, out := newInterpreter(t, nil)
	_, err := in.Interpret("var = 1;\nprint 2")
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CompileError, got %T", err)
	}
	want := []Diagnostic{
		{Line: 1, Where: " at '='", Message: "Expect variable name."},
		{Line: 2, Where: " at end", Message: "Expect ';' after value."},
	}
	if len(cerr.Diagnostics) != len(want) {
		t.Fatalf("expected %d diagnostics, got %v", len(want), cerr.Diagnostics)
	}
	for i := range want {
		if cerr.Diagnostics[i] != want[i] {
			t.Fatalf("diagnostic %d: expected %+v, got %+v", i, want[i], cerr.Diagnostics[i])
		}
	}
	if out.stderr.String() != cerr.Error()+"\n" {
		t.Fatalf("stderr %q does not match error %q", out.stderr.String(), cerr.Error())
	}
}

func TestRuntimeErrorConverted(t *testing.T) {
	in, out := newInterpreter(t, nil)
	_, err := in.Interpret("fun boom() {\n  return nope;\n}\nboom();")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if rerr.Message != "Undefined variable 'nope'." {
		t.Fatalf("unexpected message %q", rerr.Message)
	}
	if len(rerr.Stack) != 2 || rerr.Stack[0].Function != "boom" || rerr.Stack[0].Line != 2 || rerr.Stack[1].Line != 4 {
		t.Fatalf("unexpected stack %+v", rerr.Stack)
	}
	if rerr.Trace() != out.stderr.String() {
		t.Fatalf("trace %q differs from stderr %q", rerr.Trace(), out.stderr.String())
	}
}

func TestSessionPersistsGlobals(t *testing.T) {
	in, _ := newInterpreter(t, nil)
	for _, src := range []string{`var name = "lox";`, "var n = 41;", "n = n + 1;", "fun f() {}"} {
		if res, err := in.Interpret(src); res != ResultOK {
			t.Fatalf("%s: %v", src, err)
		}
	}
	tests := []struct {
		name string
		want any
	}{
		{"name", "lox"},
		{"n", float64(42)},
		{"f", "<fn f>"},
		{"clock", "<native fn>"},
	}
	for _, tt := range tests {
		got, err := in.Global(tt.name)
		if err != nil || got != tt.want {
			t.Fatalf("%s: expected %v, got %v (%v)", tt.name, tt.want, got, err)
		}
	}
	if _, err := in.Global("missing"); !errors.Is(err, ErrUndefined) {
		t.Fatalf("expected ErrUndefined, got %v", err)
	}
}

func TestDefineFunction(t *testing.T) {
	in, out := newInterpreter(t, nil)
	if err := in.DefineFunction("add", func(a, b float64) float64 { return a + b }); err != nil {
		t.Fatalf("define add: %v", err)
	}
	if err := in.DefineFunction("greet", func(name string) (string, error) {
		if name == "" {
			return "", errors.New("Name must not be empty.")
		}
		return "hi " + name, nil
	}); err != nil {
		t.Fatalf("define greet: %v", err)
	}
	if err := in.DefineFunction("count", func(n int, flag bool, extra interface{}) int {
		if flag && extra == nil {
			return n * 2
		}
		return n
	}); err != nil {
		t.Fatalf("define count: %v", err)
	}
	var logged []string
	if err := in.DefineFunction("log", func(msg string) { logged = append(logged, msg) }); err != nil {
		t.Fatalf("define log: %v", err)
	}

	src := `
print add(1, 2);
print greet("lox") == "hi lox";
print count(4, true, nil);
print log("x");
`
	if res, err := in.Interpret(src); res != ResultOK {
		t.Fatalf("run failed: %v", err)
	}
	if out.stdout.String() != "3\ntrue\n8\nnil\n" {
		t.Fatalf("unexpected output %q", out.stdout.String())
	}
	if len(logged) != 1 || logged[0] != "x" {
		t.Fatalf("unexpected log calls %v", logged)
	}

	tests := []struct {
		src  string
		want string
	}{
		{`greet("");`, "Name must not be empty."},
		{`add(1);`, "Expected 2 arguments but got 1."},
		{`add(1, "2");`, "Argument 2 must be a number, got string."},
		{`greet(nil);`, "Argument 1 must be a string, got nil."},
	}
	for _, tt := range tests {
		_, err := in.Interpret(tt.src)
		var rerr *RuntimeError
		if !errors.As(err, &rerr) || rerr.Message != tt.want {
			t.Fatalf("%s: expected %q, got %v", tt.src, tt.want, err)
		}
	}
}

func TestDefineFunctionRejectsBadSignatures(t *testing.T) {
	in, _ := newInterpreter(t, nil)
	tests := []struct {
		name string
		fn   any
	}{
		{"nilfn", nil},
		{"notfn", 42},
		{"variadic", func(args ...float64) float64 { return 0 }},
		{"threeout", func() (int, int, error) { return 0, 0, nil }},
		{"seconderr", func() (int, int) { return 0, 0 }},
		{"stringer", func(s fmt.Stringer) string { return s.String() }},
		{"slice", func(xs []float64) float64 { return 0 }},
	}
	for _, tt := range tests {
		if err := in.DefineFunction(tt.name, tt.fn); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
	if err := in.DefineFunction("", func() {}); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestConfigPrintCodeAndTrace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrintCode = true
	cfg.TraceExecution = true
	in, out := newInterpreter(t, &cfg)
	if res, err := in.Interpret("print 1;"); res != ResultOK {
		t.Fatalf("run failed: %v", err)
	}
	debug := out.debug.String()
	if !strings.Contains(debug, "== script ==") {
		t.Fatalf("missing bytecode dump:\n%s", debug)
	}
	if !strings.Contains(debug, "[ <script> ]") {
		t.Fatalf("missing execution trace:\n%s", debug)
	}
	if out.stdout.String() != "1\n" {
		t.Fatalf("debug output leaked to stdout: %q", out.stdout.String())
	}
}

func TestConfigMaxFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFrames = 4
	in, _ := newInterpreter(t, &cfg)
	src := "fun d(n) { if (n == 0) return 0; return d(n - 1); }\nprint d(%d);"
	if res, _ := in.Interpret(fmt.Sprintf(src, 2)); res != ResultOK {
		t.Fatalf("shallow recursion failed")
	}
	_, err := in.Interpret(fmt.Sprintf(src, 10))
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Message != "Stack overflow." {
		t.Fatalf("expected stack overflow, got %v", err)
	}
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	in, _ := newInterpreter(t, nil)
	if res, _ := in.Interpret("var counter = 0;"); res != ResultOK {
		t.Fatalf("define failed")
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				in.Interpret("counter = counter + 1;")
			}
		}()
	}
	wg.Wait()
	got, err := in.Global("counter")
	if err != nil || got != float64(400) {
		t.Fatalf("expected 400, got %v (%v)", got, err)
	}
}

func TestIndependentInterpreters(t *testing.T) {
	a, _ := newInterpreter(t, nil)
	b, _ := newInterpreter(t, nil)
	a.Interpret("var only = 1;")
	if _, err := b.Global("only"); !errors.Is(err, ErrUndefined) {
		t.Fatalf("globals leaked between interpreters: %v", err)
	}
}

func TestClose(t *testing.T) {
	in := New(Options{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	in.Interpret(`var s = "a" + "b";`)
	if n := in.Close(); n == 0 {
		t.Fatalf("expected objects to be freed")
	}
	if n := in.Close(); n != 0 {
		t.Fatalf("second Close freed %d objects", n)
	}
	if _, err := in.Interpret("print 1;"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := in.DefineFunction("f", func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
