package expr

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Ordering compares two operand texts, returning <0, 0 or >0.
type Ordering func(a, b string) (int, error)

// Compare applies a comparison operator to the actual value of a field and
// the clause's (already resolved) expected value. Equality and membership
// are textual; ANY satisfies equality. Ordered operators defer to order.
func Compare(op Kind, actual, want string, wildcard bool, order Ordering) (bool, error) {
	switch op {
	case EQUAL:
		return wildcard || actual == want, nil
	case NEQUAL:
		return actual != want, nil
	case IN:
		return member(actual, want), nil
	case NIN:
		return !member(actual, want), nil
	}

	c, err := order(actual, want)
	if err != nil {
		return false, err
	}
	switch op {
	case SMALL:
		return c < 0, nil
	case SMALLEQ:
		return c <= 0, nil
	case LARGE:
		return c > 0, nil
	case LARGEEQ:
		return c >= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %s", op)
}

func member(actual, list string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == actual {
			return true
		}
	}
	return false
}

// CompareVersions orders two version strings semantically. When either
// side is not a semantic version (for example "1.0.1.0") it falls back to
// plain string comparison.
func CompareVersions(a, b string) (int, error) {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b), nil
	}
	return va.Compare(vb), nil
}
