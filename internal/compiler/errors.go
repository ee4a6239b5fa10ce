package compiler

import (
	"fmt"
	"strings"
)

// Diagnostic is one syntax error reported while compiling.
type Diagnostic struct {
	Line    int
	Where   string // "", " at end" or " at '<lexeme>'"
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// Error is returned when a source fails to compile. It holds every
// diagnostic in the order reported.
type Error struct {
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
