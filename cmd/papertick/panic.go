package main

import (
	"fmt"
	"runtime/debug"
)

// panicToError converts a recovered panic value into an error carrying
// the stack trace, so the scheduler's incident log gets a full
// traceback for unexpected errors.
func panicToError(r any) error {
	return fmt.Errorf("panic: %v\n%s", r, debug.Stack())
}
