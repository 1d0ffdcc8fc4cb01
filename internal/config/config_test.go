package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ReportType != "BASIC" {
		t.Errorf("ReportType = %q, want %q", cfg.ReportType, "BASIC")
	}
	if !cfg.ColorOutput {
		t.Error("ColorOutput should be true by default")
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if r := Validate(cfg); !r.Valid() {
		t.Errorf("default config invalid: %s", r.Error())
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_GH_TOKEN", "ghp_test123")
	path := writeConfig(t, `
debug: true
report_type: JSON
exit: true
ignore: CVE-2018-18074, requests
exclude_dir:
  - build
cache:
  ttl: 30m
vulndb:
  token: "${TEST_GH_TOKEN}"
policies:
  - "license_type IN MIT,Apache-2.0"
  - policy_type: package_name
    deny_list: flask,django
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.ReportType != "JSON" {
		t.Errorf("ReportType = %q, want %q", cfg.ReportType, "JSON")
	}
	if got := strings.Join(cfg.Ignore, "|"); got != "CVE-2018-18074|requests" {
		t.Errorf("Ignore = %q", got)
	}
	if got := strings.Join(cfg.ExcludeDirs, "|"); got != "build" {
		t.Errorf("ExcludeDirs = %q", got)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Cache.TTL = %v, want 30m", cfg.Cache.TTL)
	}
	if cfg.VulnDB.Token != "ghp_test123" {
		t.Errorf("VulnDB.Token = %q, want interpolated value", cfg.VulnDB.Token)
	}
	if cfg.VulnDB.Owner != "ochronasec" {
		t.Errorf("VulnDB.Owner = %q, want default kept", cfg.VulnDB.Owner)
	}

	if len(cfg.Policies) != 2 {
		t.Fatalf("Policies = %d, want 2", len(cfg.Policies))
	}
	if !cfg.Policies[0].IsExpression() {
		t.Error("first policy should be an expression")
	}
	if cfg.Policies[1].Type != "package_name" || strings.Join(cfg.Policies[1].DenyList, ",") != "flask,django" {
		t.Errorf("second policy = %+v", cfg.Policies[1])
	}

	policies, err := cfg.BuildPolicies()
	if err != nil {
		t.Fatalf("BuildPolicies: %v", err)
	}
	if len(policies) != 2 {
		t.Errorf("built %d policies, want 2", len(policies))
	}
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/.depsentry.yml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.ReportType != "BASIC" {
		t.Errorf("ReportType = %q, want default %q", cfg.ReportType, "BASIC")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, "policies: [unclosed\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInterpolateEnvVarsUnset(t *testing.T) {
	got := interpolateEnvVars("token: ${DEPSENTRY_TEST_UNSET_VAR}")
	if got != "token: ${DEPSENTRY_TEST_UNSET_VAR}" {
		t.Errorf("unset variable should be left alone, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"report type", func(c *Config) { c.ReportType = "PDF" }, "report_type"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad expression", func(c *Config) {
			c.Policies = []PolicySpec{{Expression: "colour==red"}}
		}, "policies[0]"},
		{"bad legacy type", func(c *Config) {
			c.Policies = []PolicySpec{{Type: "maintainer"}}
		}, "policies[0]"},
		{"legacy unknown key", func(c *Config) {
			c.Policies = []PolicySpec{{Expression: "name==x"}, {Type: "license_type", Unknown: []string{"max_age"}}}
		}, "policies[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			r := Validate(cfg)
			if r.Valid() {
				t.Fatal("expected validation errors")
			}
			if r.Errors[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", r.Errors[0].Field, tt.field)
			}
		})
	}
}

func TestPolicySpecRejectsSequence(t *testing.T) {
	path := writeConfig(t, "policies:\n  - [a, b]\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for a sequence policy entry")
	}
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	fs.Bool("debug", false, "")
	fs.String("report-type", "BASIC", "")
	fs.StringSlice("ignore", nil, "")
	fs.Bool("exit", false, "")
	fs.Int("workers", 4, "")
	return fs
}

func TestApplyOverridesPrecedence(t *testing.T) {
	t.Setenv("DEPSENTRY_REPORT_TYPE", "xml")
	t.Setenv("DEPSENTRY_IGNORE", "CVE-1,CVE-2")
	t.Setenv("DEPSENTRY_EXIT", "true")

	fs := newFlags()
	if err := fs.Parse([]string{"--report-type", "json"}); err != nil {
		t.Fatal(err)
	}
	v, err := NewViper(fs)
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Workers = 8
	ApplyOverrides(&cfg, v)

	if cfg.ReportType != "JSON" {
		t.Errorf("ReportType = %q, flag should win over env", cfg.ReportType)
	}
	if got := strings.Join(cfg.Ignore, "|"); got != "CVE-1|CVE-2" {
		t.Errorf("Ignore = %q, want env value", got)
	}
	if !cfg.Exit {
		t.Error("Exit should come from the environment")
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, unset flag must not override the file", cfg.Workers)
	}
}

func TestApplyOverridesSliceFlag(t *testing.T) {
	fs := newFlags()
	if err := fs.Parse([]string{"--ignore", "CVE-9", "--ignore", "flask"}); err != nil {
		t.Fatal(err)
	}
	v, err := NewViper(fs)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	ApplyOverrides(&cfg, v)
	if got := strings.Join(cfg.Ignore, "|"); got != "CVE-9|flask" {
		t.Errorf("Ignore = %q", got)
	}
}
