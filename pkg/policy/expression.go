package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/expr"
)

// CustomPolicyType identifies violations of expression policies.
const CustomPolicyType = "custom"

// relativeWindow is what a NOW-<n> value resolves to: this many days
// before now, whatever n is.
const relativeWindow = 30 * 24 * time.Hour

const timestampLayout = "2006-01-02T15:04:05Z"

var timestampLayouts = []string{timestampLayout, "2006-01-02T15:04:05.999999Z"}

// Expression is a policy written in the expression language. The text
// describes the compliant state; a set that does not satisfy it yields
// one violation naming the offending dependencies.
type Expression struct {
	text  string
	nodes []expr.Node
	now   func() time.Time
}

// NewExpression validates and parses text.
func NewExpression(text string) (*Expression, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}
	nodes, err := expr.Parse(text)
	if err != nil {
		return nil, ErrInvalidPolicy
	}
	return &Expression{text: text, nodes: nodes, now: time.Now}, nil
}

func (e *Expression) String() string { return e.text }

func (e *Expression) Evaluate(set *dependency.Set) ([]dependency.PolicyViolation, error) {
	res, err := expr.Evaluate(e.nodes, &recordResolver{records: set.Records(), now: e.now()})
	if err != nil {
		return nil, err
	}
	if res.Holds {
		return nil, nil
	}

	msg := fmt.Sprintf("Policy defined as '%s' was not met.", e.text)
	if offenders := unique(res.Matches); len(offenders) > 0 {
		msg = "Policy violated by " + strings.Join(offenders, ", ")
	}
	return []dependency.PolicyViolation{{
		PolicyType:         CustomPolicyType,
		FriendlyPolicyType: "Custom Policy",
		Message:            msg,
	}}, nil
}

// recordResolver holds a clause when every record carrying the field
// satisfies it. The first record that does not is reported as the match.
type recordResolver struct {
	records []dependency.Record
	now     time.Time
}

func (r *recordResolver) Resolve(c expr.Clause) (expr.Outcome, error) {
	field, ok := dependency.ParseField(c.Field.Literal)
	if !ok {
		return expr.Outcome{}, fmt.Errorf("unknown field %q", c.Field.Literal)
	}
	want := c.Value.Literal
	if field == dependency.FieldName {
		want = strings.ToLower(want)
	}
	if c.Value.Kind == expr.DAYS {
		want = r.now.Add(-relativeWindow).UTC().Format(timestampLayout)
	}

	order := orderingFor(field)
	for _, rec := range r.records {
		actual, ok := rec.Value(field)
		if !ok {
			continue
		}
		holds, err := expr.Compare(c.Operator.Kind, actual, want, c.Value.Kind == expr.ANY, order)
		if err != nil {
			return expr.Outcome{}, fmt.Errorf("%s: %w", rec.Full, err)
		}
		if !holds {
			return expr.Outcome{Holds: false, Matches: []string{rec.Full}}, nil
		}
	}
	return expr.Outcome{Holds: true}, nil
}

func orderingFor(f dependency.Field) expr.Ordering {
	switch f {
	case dependency.FieldLatestVersion:
		return expr.CompareVersions
	case dependency.FieldLatestUpdate:
		return compareTimestamps
	default:
		return compareNumbers
	}
}

func compareTimestamps(a, b string) (int, error) {
	ta, err := parseTimestamp(a)
	if err != nil {
		return 0, err
	}
	tb, err := parseTimestamp(b)
	if err != nil {
		return 0, err
	}
	return ta.Compare(tb), nil
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
}

func compareNumbers(a, b string) (int, error) {
	fa, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", a, err)
	}
	fb, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", b, err)
	}
	switch {
	case fa < fb:
		return -1, nil
	case fa > fb:
		return 1, nil
	}
	return 0, nil
}

func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
