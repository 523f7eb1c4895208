package ir

import "fmt"

// InvariantViolation is the narrow panic type a pass raises when it detects
// its own internal invariant has broken. The pass driver recovers it at the
// pass boundary and converts it back into an error so no raw panic escapes
// the pipeline, distinguishing a recoverable diagnostic from a fatal
// internal bug.
type InvariantViolation struct {
	Pass string
	Msg  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s: internal invariant violated: %s", e.Pass, e.Msg)
}

// Violate panics with an InvariantViolation. Passes call this instead of a
// bare panic so the driver's recover() can distinguish it from a genuine
// programming bug elsewhere in the process.
func Violate(pass, msg string, args ...any) {
	panic(&InvariantViolation{Pass: pass, Msg: fmt.Sprintf(msg, args...)})
}
