package expr

import "fmt"

// ParseError reports an expression whose comparison operators lack a
// field or value neighbour.
type ParseError struct {
	Input    string
	Position int
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: token %d: %s", e.Input, e.Position, e.Reason)
}

// EvalError reports a structural or comparison fault found while evaluating
// an already-parsed expression.
type EvalError struct {
	Clause *Clause
	Err    error
}

func (e *EvalError) Error() string {
	if e.Clause != nil {
		return fmt.Sprintf("evaluate %s: %v", e.Clause, e.Err)
	}
	return fmt.Sprintf("evaluate: %v", e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
