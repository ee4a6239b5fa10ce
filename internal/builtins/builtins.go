// Package builtins links every native plugin into the binary. Importing it
// for side effects registers the natives with the runtime registry.
package builtins

import (
	_ "github.com/xirelogy/go-lox/internal/builtins/clock"
)
