package policy

import (
	"errors"

	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/expr"
)

// ErrInvalidPolicy is returned for any policy expression that does not
// parse or references a field outside the policy vocabulary.
var ErrInvalidPolicy = errors.New("policy could not be parsed or contains an invalid field")

// Validate checks a policy expression before it is used.
func Validate(text string) error {
	if err := expr.Validate(text, dependency.FieldNames()...); err != nil {
		return ErrInvalidPolicy
	}
	return nil
}
