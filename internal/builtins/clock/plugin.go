package clock

import (
	"time"

	"github.com/xirelogy/go-lox/internal/object"
	"github.com/xirelogy/go-lox/internal/runtime"
)

var start = time.Now()

func init() {
	runtime.Register(runtime.Spec{
		Name:  "clock",
		Arity: 0,
		Fn:    runClock,
	})
}

// runClock returns the seconds elapsed since the process started.
func runClock(args []object.Value) (object.Value, error) {
	return object.Number(time.Since(start).Seconds()), nil
}
