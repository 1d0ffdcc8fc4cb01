package vuln

import "fmt"

// EvaluationError wraps any fault raised while matching vulnerabilities.
type EvaluationError struct {
	Package string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation exception for %s: %v", e.Package, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
