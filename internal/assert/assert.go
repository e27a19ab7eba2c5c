// Package assert provides lightweight internal-invariant checks. It panics
// instead of returning an error because the conditions it guards are bugs,
// not recoverable runtime failures.
package assert

import "fmt"

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Never panics unconditionally. Used to mark unreachable code paths.
func Never(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
