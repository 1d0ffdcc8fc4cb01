package report

import (
	"bytes"
	_ "embed"
	"html/template"
	"time"

	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/scan"
	"github.com/cgast/depsentry/pkg/vuln"
)

//go:embed templates/report.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"severity": severityLabel,
	"affected": affectedVersions,
}).Parse(htmlSource))

type htmlData struct {
	Source          string
	Index           int
	Total           int
	Timestamp       string
	ToolVersion     string
	Dependencies    []dependency.Record
	Vulnerabilities []vuln.Confirmed
	Violations      []dependency.PolicyViolation
	SBOM            string
}

func renderHTML(res scan.Result, index, total int, now time.Time, toolVersion string) ([]byte, error) {
	sbom, err := NewBOM(res.Set, toolVersion, now).JSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = htmlTemplate.Execute(&buf, htmlData{
		Source:          res.Source,
		Index:           index + 1,
		Total:           total,
		Timestamp:       now.UTC().Format("2006-01-02T15:04:05Z"),
		ToolVersion:     toolVersion,
		Dependencies:    res.Set.Records(),
		Vulnerabilities: res.Set.ConfirmedVulnerabilities,
		Violations:      res.Set.PolicyViolations,
		SBOM:            string(sbom),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
