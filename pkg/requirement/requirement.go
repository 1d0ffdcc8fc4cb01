// Package requirement splits Python requirement strings such as
// "requests>=2.0.0" into name, operator and version.
package requirement

import (
	"regexp"
	"strings"
)

// Operators in the order they are tried. Two-character operators come
// first so "==" and "~=" are never read as "=".
var Operators = []string{"!=", "==", "~=", ">=", "<=", ">", "<", "="}

// Requirement is a parsed requirement string.
type Requirement struct {
	Name     string `json:"name"`
	Operator string `json:"operator,omitempty"`
	Version  string `json:"version,omitempty"`
}

// String renders the requirement back as name<op>version.
func (r Requirement) String() string {
	return r.Name + r.Operator + r.Version
}

// Pinned reports whether the requirement carries a version.
func (r Requirement) Pinned() bool {
	return r.Operator != "" && r.Version != ""
}

// Parse splits raw on the first known operator. A string without an
// operator is a bare package name.
func Parse(raw string) Requirement {
	raw = strings.TrimSpace(raw)
	for _, op := range Operators {
		if idx := strings.Index(raw, op); idx >= 0 {
			return Requirement{
				Name:     strings.TrimSpace(raw[:idx]),
				Operator: op,
				Version:  strings.TrimSpace(raw[idx+len(op):]),
			}
		}
	}
	return Requirement{Name: raw}
}

var pepOperator = regexp.MustCompile(`==|>=|<=|!=|~=|<|>`)

// Split cuts a raw requirement at the first ',' (only the first version
// constraint is kept) and splits it on the first PEP 440 comparison
// operator. Names are lower-cased as package indexes treat them
// case-insensitively.
func Split(raw string) Requirement {
	if idx := strings.Index(raw, ","); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.TrimSpace(raw)
	loc := pepOperator.FindStringIndex(raw)
	if loc == nil {
		return Requirement{Name: strings.ToLower(raw)}
	}
	return Requirement{
		Name:     strings.ToLower(strings.TrimSpace(raw[:loc[0]])),
		Operator: raw[loc[0]:loc[1]],
		Version:  strings.TrimSpace(raw[loc[1]:]),
	}
}

// IsReference reports whether raw is a "-r other.txt" include line.
func IsReference(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "-r ")
}

// ParseList parses each package string with Parse and keys the results
// by name. A repeated name keeps its first position but takes the later
// constraint.
func ParseList(packages []string) []Requirement {
	index := make(map[string]int, len(packages))
	var out []Requirement
	for _, p := range packages {
		req := Parse(p)
		if i, ok := index[req.Name]; ok {
			out[i] = req
			continue
		}
		index[req.Name] = len(out)
		out = append(out, req)
	}
	return out
}
