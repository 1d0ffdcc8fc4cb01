package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/scan"
	"github.com/cgast/depsentry/pkg/vuln"
)

type textStyles struct {
	source lipgloss.Style
	label  lipgloss.Style
	fail   lipgloss.Style
	pass   lipgloss.Style
	rule   lipgloss.Style
}

func newTextStyles(color bool) textStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return textStyles{plain, plain, plain, plain, plain}
	}
	return textStyles{
		source: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
		fail:   lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
		pass:   lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		rule:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

const ruleWidth = 72

func renderText(res scan.Result, full, color bool) string {
	st := newTextStyles(color)
	var sb strings.Builder
	rule := st.rule.Render(strings.Repeat("─", ruleWidth))

	sb.WriteString(st.source.Render("File: "+res.Source) + "\n")
	sb.WriteString(rule + "\n")

	vulns := res.Set.ConfirmedVulnerabilities
	if len(vulns) == 0 {
		sb.WriteString(st.pass.Render("No vulnerabilities detected") + "\n")
	} else {
		sb.WriteString(st.fail.Render(fmt.Sprintf("%d vulnerabilities detected", len(vulns))) + "\n")
		for _, v := range vulns {
			sb.WriteString(rule + "\n")
			writeVuln(&sb, st, v, full)
		}
	}
	sb.WriteString(rule + "\n")

	violations := res.Set.PolicyViolations
	if len(violations) == 0 {
		sb.WriteString(st.pass.Render("No policy violations found") + "\n")
	} else {
		sb.WriteString(st.fail.Render(fmt.Sprintf("%d policy violations found", len(violations))) + "\n")
		for _, pv := range violations {
			writeViolation(&sb, st, pv)
		}
	}
	sb.WriteString(rule + "\n")
	return sb.String()
}

func writeRow(sb *strings.Builder, st textStyles, label, value string) {
	fmt.Fprintf(sb, "%s %s\n", st.label.Render(fmt.Sprintf("%20s", label)), value)
}

func writeVuln(sb *strings.Builder, st textStyles, v vuln.Confirmed, full bool) {
	writeRow(sb, st, "Package Name", v.Name)
	writeRow(sb, st, "Installed Version", v.FoundVersion)
	writeRow(sb, st, "CVE/Vuln ID", v.CVEID)
	writeRow(sb, st, "Severity", severityLabel(v))
	writeRow(sb, st, "Affected Versions", affectedVersions(v))
	if !full {
		return
	}
	writeRow(sb, st, "Description", v.Description)
	writeRow(sb, st, "Reason", v.Reason)
	if v.LatestVersion != "" {
		writeRow(sb, st, "Latest Version", v.LatestVersion)
	}
	for _, ref := range v.References {
		writeRow(sb, st, "Reference", ref)
	}
}

func writeViolation(sb *strings.Builder, st textStyles, pv dependency.PolicyViolation) {
	writeRow(sb, st, "Policy", pv.FriendlyPolicyType)
	writeRow(sb, st, "Violation", pv.Message)
}

func severityLabel(v vuln.Confirmed) string {
	if v.OchronaSeverityScore != "" {
		return fmt.Sprintf("%s (%s)", v.OchronaSeverityScore, v.Severity())
	}
	return v.Severity()
}

// affectedVersions lists the legacy bounds, or the version expression
// with the field name dropped.
func affectedVersions(v vuln.Confirmed) string {
	if len(v.AffectedVersions) == 0 {
		return strings.ReplaceAll(v.VulnerableVersionExpression, "version", "")
	}
	parts := make([]string, 0, len(v.AffectedVersions))
	for _, av := range v.AffectedVersions {
		parts = append(parts, av.Operator+av.VersionValue)
	}
	return strings.Join(parts, ", ")
}
