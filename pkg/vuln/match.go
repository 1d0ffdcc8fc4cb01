package vuln

import (
	"fmt"

	"github.com/cgast/depsentry/pkg/expr"
	"github.com/cgast/depsentry/pkg/requirement"
)

// VersionField is the only field a version expression may reference.
const VersionField = "version"

// noFixVersion marks an affected range with no remediated release.
const noFixVersion = "-"

// Match checks every required package against the candidates with the
// same name and returns the confirmed vulnerabilities. Candidates are
// not modified. Any fault aborts the whole match.
func Match(candidates []Vulnerability, required []string) ([]Confirmed, error) {
	var out []Confirmed
	for _, req := range requirement.ParseList(required) {
		for _, v := range candidates {
			if v.Name != req.Name {
				continue
			}
			c, ok, err := matchOne(v, req)
			if err != nil {
				return nil, &EvaluationError{Package: req.String(), Err: err}
			}
			if ok {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func matchOne(v Vulnerability, req requirement.Requirement) (Confirmed, bool, error) {
	if v.VulnerableVersionExpression != "" {
		return matchExpression(v, req)
	}
	return matchRange(v, req)
}

func matchExpression(v Vulnerability, req requirement.Requirement) (Confirmed, bool, error) {
	nodes, err := expr.Parse(v.VulnerableVersionExpression)
	if err != nil {
		return Confirmed{}, false, err
	}
	res, err := expr.Evaluate(nodes, versionResolver(req.Version))
	if err != nil {
		return Confirmed{}, false, err
	}
	if !res.Holds {
		return Confirmed{}, false, nil
	}
	c := confirm(v, req.String(), fmt.Sprintf("Flagged because %s matched version expression: %s", req.Version, v.VulnerableVersionExpression))
	c.AffectedVersions = []AffectedVersion{}
	return c, true, nil
}

// versionResolver decides clauses against a single dependency version.
// An unpinned dependency only satisfies the wildcard.
func versionResolver(version string) expr.Resolver {
	return expr.ResolverFunc(func(c expr.Clause) (expr.Outcome, error) {
		if c.Field.Literal != VersionField {
			return expr.Outcome{}, fmt.Errorf("unknown field %q in version expression", c.Field.Literal)
		}
		wildcard := c.Value.Kind == expr.ANY
		if version == "" {
			return expr.Outcome{Holds: wildcard && c.Operator.Kind == expr.EQUAL}, nil
		}
		holds, err := expr.Compare(c.Operator.Kind, version, c.Value.Literal, wildcard, expr.CompareVersions)
		if err != nil {
			return expr.Outcome{}, err
		}
		return expr.Outcome{Holds: holds}, nil
	})
}

// matchRange applies the legacy affected-versions list: all bounds must
// hold, or the version must equal one of the exact "=" values.
func matchRange(v Vulnerability, req requirement.Requirement) (Confirmed, bool, error) {
	exact := make(map[string]bool)
	for _, av := range v.AffectedVersions {
		if av.VersionValue == noFixVersion {
			c := confirm(v, req.String(), fmt.Sprintf("Flagged as a confirmed vulnerability because %s is a required dependency and it has no known remediated versions.", req.Name))
			c.VulnerableVersionExpression = "version==*"
			return c, true, nil
		}
		if av.Operator == "=" {
			exact[av.VersionValue] = true
		}
	}
	if req.Version == "" {
		return Confirmed{}, false, nil
	}

	inRange := true
	for _, av := range v.AffectedVersions {
		ok, err := satisfies(req.Version, av)
		if err != nil {
			return Confirmed{}, false, err
		}
		if !ok {
			inRange = false
			break
		}
	}
	if !inRange && !exact[req.Version] {
		return Confirmed{}, false, nil
	}
	c := confirm(v, req.String(), fmt.Sprintf("Flagged as a confirmed vulnerability because version was an exact match for dependency: %s", req.Name))
	c.VulnerableVersionExpression = ""
	return c, true, nil
}

var rangeOperators = map[string]expr.Kind{
	"=":  expr.EQUAL,
	"==": expr.EQUAL,
	"!=": expr.NEQUAL,
	"<":  expr.SMALL,
	"<=": expr.SMALLEQ,
	">":  expr.LARGE,
	">=": expr.LARGEEQ,
}

func satisfies(version string, av AffectedVersion) (bool, error) {
	op, ok := rangeOperators[av.Operator]
	if !ok {
		return false, fmt.Errorf("unsupported affected version operator %q", av.Operator)
	}
	if op == expr.EQUAL || op == expr.NEQUAL {
		c, err := expr.CompareVersions(version, av.VersionValue)
		if err != nil {
			return false, err
		}
		return (c == 0) == (op == expr.EQUAL), nil
	}
	return expr.Compare(op, version, av.VersionValue, false, expr.CompareVersions)
}

func confirm(v Vulnerability, found, reason string) Confirmed {
	c := Confirmed{Vulnerability: v, FoundVersion: found, Reason: reason}
	c.References = append([]string(nil), v.References...)
	c.AffectedVersions = append([]AffectedVersion(nil), v.AffectedVersions...)
	return c
}
