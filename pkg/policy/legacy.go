package policy

import (
	"fmt"
	"strings"

	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/requirement"
)

// LegacyKind selects what a structured allow/deny policy checks.
type LegacyKind string

const (
	PackageName LegacyKind = "package_name"
	LicenseType LegacyKind = "license_type"
)

// LegacySchemaFields are the keys a structured policy may carry besides
// its kind.
var LegacySchemaFields = []string{"allow_list", "deny_list"}

// Legacy is a structured allow/deny policy. When the allow list is
// non-empty it alone decides; otherwise the deny list applies.
type Legacy struct {
	Kind  LegacyKind
	Allow []string
	Deny  []string
}

// NewLegacy builds a structured policy from comma separated lists.
// Package names are compared case-insensitively, license types exactly.
func NewLegacy(kind string, allowList, denyList string) (*Legacy, error) {
	k := LegacyKind(kind)
	if k != PackageName && k != LicenseType {
		return nil, fmt.Errorf("unknown policy_type %q", kind)
	}
	fold := k == PackageName
	return &Legacy{Kind: k, Allow: splitList(allowList, fold), Deny: splitList(denyList, fold)}, nil
}

func splitList(s string, fold bool) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			if fold {
				item = strings.ToLower(item)
			}
			out = append(out, item)
		}
	}
	return out
}

func (l *Legacy) String() string {
	return fmt.Sprintf("%s(allow=%s deny=%s)", l.Kind, strings.Join(l.Allow, ","), strings.Join(l.Deny, ","))
}

func (l *Legacy) Evaluate(set *dependency.Set) ([]dependency.PolicyViolation, error) {
	switch l.Kind {
	case PackageName:
		return l.packageNames(set), nil
	case LicenseType:
		return l.licenseTypes(set), nil
	}
	return nil, fmt.Errorf("unknown policy_type %q", l.Kind)
}

func (l *Legacy) packageNames(set *dependency.Set) []dependency.PolicyViolation {
	var violations []dependency.PolicyViolation
	required := requirement.ParseList(set.FlatList)
	if len(l.Allow) > 0 {
		for _, req := range required {
			if !contains(l.Allow, strings.ToLower(req.Name)) {
				violations = append(violations, packageViolation(fmt.Sprintf("'%s' not in list of allowed packages. (from %s)", req.Name, req)))
			}
		}
		return violations
	}
	for _, denied := range l.Deny {
		for _, req := range required {
			if strings.ToLower(req.Name) == denied {
				violations = append(violations, packageViolation(fmt.Sprintf("'%s' is a restricted package based on policy. (from %s)", denied, req)))
			}
		}
	}
	return violations
}

func (l *Legacy) licenseTypes(set *dependency.Set) []dependency.PolicyViolation {
	var violations []dependency.PolicyViolation
	records := set.Records()
	if len(l.Allow) > 0 {
		for _, r := range records {
			if !contains(l.Allow, r.LicenseType) {
				violations = append(violations, licenseViolation(fmt.Sprintf("'%s' not in list of allowed licenses. (from %s)", r.LicenseType, r.Full)))
			}
		}
		return violations
	}
	for _, denied := range l.Deny {
		for _, r := range records {
			if r.LicenseType == denied {
				violations = append(violations, licenseViolation(fmt.Sprintf("'%s' is a restricted license type based on policy. (from %s)", denied, r.Full)))
			}
		}
	}
	return violations
}

func packageViolation(msg string) dependency.PolicyViolation {
	return dependency.PolicyViolation{PolicyType: string(PackageName), FriendlyPolicyType: "Python Package Name", Message: msg}
}

func licenseViolation(msg string) dependency.PolicyViolation {
	return dependency.PolicyViolation{PolicyType: string(LicenseType), FriendlyPolicyType: "Python License Type", Message: msg}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
