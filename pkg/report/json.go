package report

import (
	"encoding/json"
	"time"

	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/scan"
	"github.com/cgast/depsentry/pkg/vuln"
)

type jsonMeta struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

type jsonReport struct {
	Meta         jsonMeta                     `json:"meta"`
	Dependencies []string                     `json:"dependencies"`
	Findings     []vuln.Confirmed             `json:"findings"`
	Violations   []dependency.PolicyViolation `json:"violations"`
}

func renderJSON(res scan.Result, now time.Time) ([]byte, error) {
	body, err := json.MarshalIndent(jsonReport{
		Meta:         jsonMeta{Source: res.Source, Timestamp: now.Format(time.RFC3339)},
		Dependencies: res.Set.FlatList,
		Findings:     res.Set.ConfirmedVulnerabilities,
		Violations:   res.Set.PolicyViolations,
	}, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}
