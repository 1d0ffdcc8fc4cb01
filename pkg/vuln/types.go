// Package vuln decides which candidate vulnerabilities apply to the
// versions a project actually requires.
package vuln

import (
	"encoding/json"
	"fmt"
)

// AffectedVersion is one bound of a legacy affected-version range.
type AffectedVersion struct {
	VersionValue string `json:"version_value" xml:"version_value"`
	Operator     string `json:"operator" xml:"operator"`
}

// Vulnerability is a vulnerability database record for one package.
type Vulnerability struct {
	Name                        string            `json:"name" xml:"name"`
	Owner                       string            `json:"owner,omitempty" xml:"owner,omitempty"`
	RepoURL                     string            `json:"repo_url,omitempty" xml:"repo_url,omitempty"`
	References                  []string          `json:"references,omitempty" xml:"references>reference,omitempty"`
	CWEID                       string            `json:"cwe_id,omitempty" xml:"cwe_id,omitempty"`
	Impact                      map[string]any    `json:"impact,omitempty" xml:"-"`
	Description                 string            `json:"description,omitempty" xml:"description,omitempty"`
	Language                    string            `json:"language,omitempty" xml:"language,omitempty"`
	OchronaSeverityScore        json.Number       `json:"ochrona_severity_score,omitempty" xml:"ochrona_severity_score,omitempty"`
	RepositorySummary           string            `json:"repository_summary,omitempty" xml:"repository_summary,omitempty"`
	License                     string            `json:"license,omitempty" xml:"license,omitempty"`
	LatestVersion               string            `json:"latest_version,omitempty" xml:"latest_version,omitempty"`
	CVEID                       string            `json:"cve_id,omitempty" xml:"cve_id,omitempty"`
	PublishDate                 string            `json:"publish_date,omitempty" xml:"publish_date,omitempty"`
	AffectedVersions            []AffectedVersion `json:"affected_versions" xml:"affected_versions>affected_version"`
	VulnerableVersionExpression string            `json:"vulnerable_version_expression,omitempty" xml:"vulnerable_version_expression,omitempty"`
}

// Severity returns the CVSS v3 severity label, falling back to v2.
func (v Vulnerability) Severity() string {
	for _, key := range []string{"cvss3_severity", "cvss2_severity"} {
		if s, ok := v.Impact[key]; ok && s != nil && fmt.Sprint(s) != "" {
			return fmt.Sprint(s)
		}
	}
	return "UNKNOWN"
}

// Confirmed is a vulnerability that applies to a required dependency.
type Confirmed struct {
	Vulnerability
	FoundVersion string `json:"found_version" xml:"found_version"`
	Reason       string `json:"reason" xml:"reason"`
}
