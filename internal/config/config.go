// Package config handles lox.toml interpreter configuration and its
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvMaxFrames    = "LOX_MAX_FRAMES"
	EnvPrintCode    = "LOX_PRINT_CODE"
	EnvTrace        = "LOX_TRACE"
	EnvLogVerbosity = "LOX_LOG_VERBOSITY"
	EnvLogFile      = "LOX_LOG_FILE"
)

const DefaultMaxFrames = 64

// Config represents a lox.toml configuration.
type Config struct {
	// MaxFrames bounds the call depth; the value stack is sized from it.
	MaxFrames      int  `toml:"max-frames"`
	PrintCode      bool `toml:"print-code"`
	TraceExecution bool `toml:"trace-execution"`
	Log            Log  `toml:"log"`
}

// Log configures the logging backend.
type Log struct {
	// Verbosity follows commonlog: -4 none, 0 notice, 1 info, 2 and above debug.
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

func Default() Config {
	return Config{MaxFrames: DefaultMaxFrames}
}

// Load parses a TOML configuration file. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings the interpreter cannot honor.
func (c Config) Validate() error {
	if c.MaxFrames <= 0 {
		return fmt.Errorf("max-frames must be positive, got %d", c.MaxFrames)
	}
	return nil
}

// ApplyEnv overrides cfg from the dotenv file at envFile (optional) and the
// process environment. The process environment wins over the file.
func ApplyEnv(cfg Config, envFile string) (Config, error) {
	vars := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil {
			return cfg, fmt.Errorf("cannot read %s: %w", envFile, err)
		}
		vars = fileVars
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}

	if v, ok := lookup(EnvMaxFrames); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvMaxFrames, err)
		}
		cfg.MaxFrames = n
	}
	if v, ok := lookup(EnvPrintCode); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvPrintCode, err)
		}
		cfg.PrintCode = b
	}
	if v, ok := lookup(EnvTrace); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvTrace, err)
		}
		cfg.TraceExecution = b
	}
	if v, ok := lookup(EnvLogVerbosity); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogVerbosity, err)
		}
		cfg.Log.Verbosity = n
	}
	if v, ok := lookup(EnvLogFile); ok {
		cfg.Log.File = v
	}
	return cfg, cfg.Validate()
}
