// Package policy evaluates compliance policies against the dependencies
// of one scan input.
package policy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cgast/depsentry/pkg/dependency"
)

// Policy produces the violations a dependency set commits.
type Policy interface {
	Evaluate(set *dependency.Set) ([]dependency.PolicyViolation, error)
	String() string
}

// Apply evaluates every policy concurrently and appends the violations
// to set in policy order. The first evaluation fault is returned and set
// is left untouched.
func Apply(ctx context.Context, set *dependency.Set, policies []Policy) error {
	out := make([][]dependency.PolicyViolation, len(policies))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range policies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			violations, err := p.Evaluate(set)
			if err != nil {
				return fmt.Errorf("policy %s: %w", p, err)
			}
			out[i] = violations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, violations := range out {
		set.AddViolations(violations...)
	}
	return nil
}
