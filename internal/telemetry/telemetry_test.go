package telemetry

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %q", buf.String())
	}

	NewLogger(&buf, true, false).Debug("shown", "pkg", "requests")
	if !strings.Contains(buf.String(), "pkg=requests") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}

func TestNewLoggerSilent(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, true, true).Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("silent logger wrote %q", buf.String())
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ScanFinished(time.Second, nil)
	m.ScanFinished(time.Second, errors.New("boom"))
	m.DependenciesResolved(3)
	m.VulnerabilityConfirmed("HIGH")
	m.PolicyViolated("package_name")

	if got := testutil.ToFloat64(m.scans.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok scans = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dependencies); got != 3 {
		t.Errorf("dependencies = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"depsentry_scans_total",
		`depsentry_vulnerabilities_total{severity="HIGH"} 1`,
		`depsentry_policy_violations_total{policy_type="package_name"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
