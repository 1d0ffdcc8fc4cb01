package expr

import (
	"errors"
	"fmt"
)

// Outcome is what a Resolver reports for one clause.
type Outcome struct {
	Holds   bool
	Matches []string
}

// Resolver decides a single clause. Policy checks and version matching
// plug in different resolvers over the same evaluator.
type Resolver interface {
	Resolve(c Clause) (Outcome, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(c Clause) (Outcome, error)

func (f ResolverFunc) Resolve(c Clause) (Outcome, error) { return f(c) }

// Result is the outcome of a whole expression. Matches collects the
// resolver matches of every clause in evaluation order.
type Result struct {
	Holds   bool
	Matches []string
}

type operand struct {
	value   bool
	combine func(a, b bool) bool
	literal string
}

func (o operand) isCombinator() bool { return o.combine != nil }

var combinators = map[Kind]func(a, b bool) bool{
	AND: func(a, b bool) bool { return a && b },
	OR:  func(a, b bool) bool { return a || b },
}

// Evaluate walks nodes left to right. Groups are evaluated recursively and
// collapse to one boolean. Each AND/OR is applied to its immediate left and
// right operands with no precedence; the result is the conjunction of all
// combinator results, or of the bare clause results when there are none.
func Evaluate(nodes []Node, r Resolver) (Result, error) {
	var (
		ops     []operand
		matches []string
	)
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		switch {
		case n.IsClause():
			out, err := r.Resolve(*n.Clause)
			if err != nil {
				var evalErr *EvalError
				if errors.As(err, &evalErr) {
					return Result{}, err
				}
				return Result{}, &EvalError{Clause: n.Clause, Err: err}
			}
			ops = append(ops, operand{value: out.Holds})
			matches = append(matches, out.Matches...)
		case n.Token.Kind == LBRACKET:
			end, err := closingBracket(nodes, i)
			if err != nil {
				return Result{}, err
			}
			sub, err := Evaluate(nodes[i+1:end], r)
			if err != nil {
				return Result{}, err
			}
			ops = append(ops, operand{value: sub.Holds})
			matches = append(matches, sub.Matches...)
			i = end
		case n.Token.Kind == RBRACKET:
			return Result{}, &EvalError{Err: fmt.Errorf("unexpected %q at node %d", n.Token.Literal, i)}
		case n.Token.IsLogical():
			ops = append(ops, operand{combine: combinators[n.Token.Kind], literal: n.Token.Literal})
		}
	}

	holds, err := collapse(ops)
	if err != nil {
		return Result{}, err
	}
	return Result{Holds: holds, Matches: matches}, nil
}

func closingBracket(nodes []Node, open int) (int, error) {
	depth := 0
	for j := open; j < len(nodes); j++ {
		switch nodes[j].Token.Kind {
		case LBRACKET:
			depth++
		case RBRACKET:
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, &EvalError{Err: fmt.Errorf("unclosed group at node %d", open)}
}

func collapse(ops []operand) (bool, error) {
	var combined, bare []bool
	for k, op := range ops {
		if !op.isCombinator() {
			bare = append(bare, op.value)
			continue
		}
		if k == 0 || k+1 >= len(ops) || ops[k-1].isCombinator() || ops[k+1].isCombinator() {
			return false, &EvalError{Err: fmt.Errorf("%s needs an operand on both sides", op.literal)}
		}
		combined = append(combined, op.combine(ops[k-1].value, ops[k+1].value))
	}
	if len(combined) > 0 {
		return all(combined), nil
	}
	return all(bare), nil
}

func all(values []bool) bool {
	for _, v := range values {
		if !v {
			return false
		}
	}
	return true
}
