package dependency

import (
	"sync"

	"github.com/cgast/depsentry/pkg/vuln"
)

// Set aggregates the dependencies of one scan input and the findings
// produced for them. Create it with NewSet.
type Set struct {
	mu sync.Mutex

	Dependencies             []Record          `json:"dependencies"`
	FlatList                 []string          `json:"flat_list"`
	ConfirmedVulnerabilities []vuln.Confirmed  `json:"confirmed_vulnerabilities"`
	PolicyViolations         []PolicyViolation `json:"policy_violations"`
}

// NewSet builds a set over records and derives the flat list. Every
// collection starts empty and is owned by the new set.
func NewSet(records []Record) *Set {
	deps := make([]Record, len(records))
	copy(deps, records)
	return &Set{
		Dependencies:             deps,
		FlatList:                 flatten(deps),
		ConfirmedVulnerabilities: []vuln.Confirmed{},
		PolicyViolations:         []PolicyViolation{},
	}
}

// flatten keeps one entry per package name in first-seen order. When a
// name repeats, the record with the textually greater version wins.
func flatten(records []Record) []string {
	var order []string
	best := make(map[string]Record)
	for _, r := range records {
		if r.IsReference {
			continue
		}
		cur, seen := best[r.Name]
		if !seen {
			order = append(order, r.Name)
			best[r.Name] = r
			continue
		}
		if r.Version > cur.Version {
			best[r.Name] = r
		}
	}
	flat := make([]string, 0, len(order))
	for _, name := range order {
		flat = append(flat, best[name].Full)
	}
	return flat
}

// Records returns the non-reference records.
func (s *Set) Records() []Record {
	var out []Record
	for _, r := range s.Dependencies {
		if !r.IsReference {
			out = append(out, r)
		}
	}
	return out
}

// AddVulnerabilities appends confirmed vulnerabilities. Safe for
// concurrent use.
func (s *Set) AddVulnerabilities(v ...vuln.Confirmed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConfirmedVulnerabilities = append(s.ConfirmedVulnerabilities, v...)
}

// AddViolations appends policy violations. Safe for concurrent use.
func (s *Set) AddViolations(v ...PolicyViolation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PolicyViolations = append(s.PolicyViolations, v...)
}

// FilterVulnerabilities drops confirmed vulnerabilities for which drop
// returns true.
func (s *Set) FilterVulnerabilities(drop func(vuln.Confirmed) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.ConfirmedVulnerabilities[:0]
	for _, v := range s.ConfirmedVulnerabilities {
		if !drop(v) {
			kept = append(kept, v)
		}
	}
	s.ConfirmedVulnerabilities = kept
}

// HasFindings reports whether anything was confirmed or violated.
func (s *Set) HasFindings() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ConfirmedVulnerabilities) > 0 || len(s.PolicyViolations) > 0
}
