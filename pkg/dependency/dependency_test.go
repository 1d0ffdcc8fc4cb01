package dependency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/depsentry/pkg/vuln"
)

func TestNewRecordResolvesDisplayString(t *testing.T) {
	tests := []struct {
		raw    string
		latest string
		want   string
	}{
		{"requests>=2.0.0", "2.31.0", "requests==2.31.0"},
		{"requests>=3.0.0", "2.31.0", "requests>=3.0.0"},
		{"requests", "2.31.0", "requests==2.31.0"},
		{"requests", "", "requests"},
		{"requests==2.19.0", "2.31.0", "requests==2.19.0"},
		{"Flask<=2.0,>1.0", "3.0.0", "flask<=2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := NewRecord(tt.raw, Metadata{LatestVersion: tt.latest})
			assert.Equal(t, tt.want, r.Full)
		})
	}
}

func TestNewRecordReference(t *testing.T) {
	r := NewRecord("-r base.txt", Metadata{})
	assert.True(t, r.IsReference)
	assert.Empty(t, r.Name)
}

func TestRecordValue(t *testing.T) {
	r := NewRecord("fake==9.9.9", Metadata{LicenseType: "MIT", ReleaseCount: "12"})

	v, ok := r.Value(FieldName)
	assert.True(t, ok)
	assert.Equal(t, "fake", v)

	v, ok = r.Value(FieldLicenseType)
	assert.True(t, ok)
	assert.Equal(t, "MIT", v)

	_, ok = r.Value(FieldLatestUpdate)
	assert.False(t, ok)
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("release_count")
	assert.True(t, ok)
	assert.Equal(t, FieldReleaseCount, f)

	_, ok = ParseField("version")
	assert.False(t, ok)
	assert.Len(t, FieldNames(), 5)
}

func TestNormalizeLicense(t *testing.T) {
	assert.Equal(t, "Apache-2.0", NormalizeLicense("Apache License, Version 2.0"))
	assert.Equal(t, "MIT", NormalizeLicense("MIT License"))
	assert.Equal(t, "BSD-3-Clause", NormalizeLicense("BSD"))
	assert.Equal(t, UnknownLicense, NormalizeLicense(""))
	assert.Equal(t, "WTFPL", NormalizeLicense("WTFPL"))
}

func TestNewSetFlatList(t *testing.T) {
	set := NewSet([]Record{
		NewRecord("a==1.0.0", Metadata{}),
		NewRecord("b==2.0.0", Metadata{}),
		NewRecord("a==1.2.0", Metadata{}),
		NewRecord("a==1.1.0", Metadata{}),
		NewRecord("-r other.txt", Metadata{}),
	})
	assert.Equal(t, []string{"a==1.2.0", "b==2.0.0"}, set.FlatList)
	assert.Len(t, set.Dependencies, 5)
	assert.Len(t, set.Records(), 4)
}

func TestNewSetFlatListTextualTieBreak(t *testing.T) {
	set := NewSet([]Record{
		NewRecord("a==10.0.0", Metadata{}),
		NewRecord("a==9.0.0", Metadata{}),
	})
	assert.Equal(t, []string{"a==9.0.0"}, set.FlatList)
}

func TestNewSetIsolation(t *testing.T) {
	first := NewSet(nil)
	second := NewSet(nil)
	first.AddViolations(PolicyViolation{PolicyType: "custom"})
	first.AddVulnerabilities(vuln.Confirmed{FoundVersion: "a==1"})

	assert.Empty(t, second.PolicyViolations)
	assert.Empty(t, second.ConfirmedVulnerabilities)
	assert.NotNil(t, second.PolicyViolations)
	assert.True(t, first.HasFindings())
	assert.False(t, second.HasFindings())
}

func TestSetConcurrentAppend(t *testing.T) {
	set := NewSet(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set.AddViolations(PolicyViolation{PolicyType: "custom"})
		}()
	}
	wg.Wait()
	assert.Len(t, set.PolicyViolations, 50)
}

func TestFilterVulnerabilities(t *testing.T) {
	set := NewSet(nil)
	set.AddVulnerabilities(
		vuln.Confirmed{Vulnerability: vuln.Vulnerability{Name: "a", CVEID: "CVE-1"}},
		vuln.Confirmed{Vulnerability: vuln.Vulnerability{Name: "b", CVEID: "CVE-2"}},
	)
	set.FilterVulnerabilities(func(c vuln.Confirmed) bool { return c.CVEID == "CVE-1" })
	require.Len(t, set.ConfirmedVulnerabilities, 1)
	assert.Equal(t, "CVE-2", set.ConfirmedVulnerabilities[0].CVEID)
}
