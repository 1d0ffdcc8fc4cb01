package config

import (
	"fmt"
	"strings"

	"github.com/cgast/depsentry/pkg/policy"
	"github.com/cgast/depsentry/pkg/report"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a config.
type ValidationResult struct {
	Errors []ValidationError
}

// Valid returns true if no validation errors were found.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message from all validation errors.
func (r ValidationResult) Error() string {
	if r.Valid() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func (r *ValidationResult) add(field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the settings a scan cannot run without.
func Validate(cfg Config) ValidationResult {
	var result ValidationResult

	if _, err := report.ParseType(cfg.ReportType); err != nil {
		result.add("report_type", "unknown report type %q", cfg.ReportType)
	}
	if cfg.Workers < 1 {
		result.add("workers", "must be at least 1")
	}
	if cfg.Cache.TTL < 0 {
		result.add("cache.ttl", "must not be negative")
	}

	for i, p := range cfg.Policies {
		field := fmt.Sprintf("policies[%d]", i)
		if p.IsExpression() {
			if err := policy.Validate(p.Expression); err != nil {
				result.add(field, "%v", err)
			}
			continue
		}
		switch policy.LegacyKind(p.Type) {
		case policy.PackageName, policy.LicenseType:
		default:
			result.add(field, "%q is not a supported policy type (%s, %s)", p.Type, policy.PackageName, policy.LicenseType)
			continue
		}
		if len(p.Unknown) > 0 {
			result.add(field, "%q contains an invalid field: %s", p.Type, strings.Join(p.Unknown, ", "))
		}
	}

	return result
}
