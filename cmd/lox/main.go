// Lox CLI - runs a script file or starts an interactive REPL
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"

	lox "github.com/xirelogy/go-lox"
	"github.com/xirelogy/go-lox/internal/config"
)

const (
	exitUsage = 64
	exitIO    = 74
)

var log = commonlog.GetLogger("lox.cli")

func main() {
	util.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("lox", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to a lox.toml configuration file")
	envFile := flags.String("env", "", "Path to a dotenv file with LOX_* overrides")
	printCode := flags.Bool("print-code", false, "Dump the bytecode of each compiled function to stderr")
	trace := flags.Bool("trace", false, "Trace every executed instruction to stderr")
	verbosity := flags.Int("v", 0, "Log verbosity (0 notice, 1 info, 2 debug)")
	logFile := flags.String("log", "", "Log to a file instead of stderr")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lox [options] [script]\n\n")
		fmt.Fprintf(stderr, "Runs a Lox script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err == nil {
		cfg, err = config.ApplyEnv(cfg, *envFile)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitUsage
	}
	// explicit flags override the file and the environment
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "print-code":
			cfg.PrintCode = *printCode
		case "trace":
			cfg.TraceExecution = *trace
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "log":
			cfg.Log.File = *logFile
		}
	})
	commonlog.Initialize(cfg.Log.Verbosity, cfg.Log.File)

	in := lox.New(lox.Options{Stdout: stdout, Stderr: stderr, Config: &cfg})
	defer func() {
		log.Debugf("session closed, %d objects freed", in.Close())
	}()

	if flags.NArg() == 1 {
		return runFile(in, flags.Arg(0), stderr)
	}
	return runREPL(in, stdin, stdout)
}

func runFile(in *lox.Interpreter, path string, stderr io.Writer) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Could not open file \"%s\".\n", path)
		log.Errorf("read %s: %s", path, err.Error())
		return exitIO
	}
	log.Infof("running %s", path)
	result, _ := in.Interpret(string(source))
	return result.ExitCode()
}

// runREPL interprets one line at a time in the same session. Errors are
// reported and the session continues; end of input exits cleanly.
func runREPL(in *lox.Interpreter, stdin io.Reader, stdout io.Writer) int {
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			break
		}
		in.Interpret(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("read input: %s", err.Error())
		return exitIO
	}
	return 0
}
