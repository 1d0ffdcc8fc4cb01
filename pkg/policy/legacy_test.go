package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/depsentry/pkg/dependency"
)

func legacySet() *dependency.Set {
	return dependency.NewSet([]dependency.Record{
		dependency.NewRecord("requests==2.19.0", dependency.Metadata{LicenseType: "Apache-2.0"}),
		dependency.NewRecord("click==8.0.0", dependency.Metadata{LicenseType: "BSD-3-Clause"}),
	})
}

func TestLegacyPackageName(t *testing.T) {
	tests := []struct {
		name  string
		allow string
		deny  string
		want  []string
	}{
		{"allow list", "requests, flask", "", []string{"'click' not in list of allowed packages. (from click==8.0.0)"}},
		{"allow list wins over deny", "requests,click", "requests", nil},
		{"deny list", "", " click ", []string{"'click' is a restricted package based on policy. (from click==8.0.0)"}},
		{"nothing configured", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLegacy("package_name", tt.allow, tt.deny)
			require.NoError(t, err)
			violations, err := p.Evaluate(legacySet())
			require.NoError(t, err)

			var got []string
			for _, v := range violations {
				assert.Equal(t, "package_name", v.PolicyType)
				assert.Equal(t, "Python Package Name", v.FriendlyPolicyType)
				got = append(got, v.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLegacyLicenseType(t *testing.T) {
	tests := []struct {
		name  string
		allow string
		deny  string
		want  []string
	}{
		{"allow list", "Apache-2.0", "", []string{"'BSD-3-Clause' not in list of allowed licenses. (from click==8.0.0)"}},
		{"deny list", "", "Apache-2.0,GPL-3.0-only", []string{"'Apache-2.0' is a restricted license type based on policy. (from requests==2.19.0)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLegacy("license_type", tt.allow, tt.deny)
			require.NoError(t, err)
			violations, err := p.Evaluate(legacySet())
			require.NoError(t, err)

			var got []string
			for _, v := range violations {
				assert.Equal(t, "license_type", v.PolicyType)
				assert.Equal(t, "Python License Type", v.FriendlyPolicyType)
				got = append(got, v.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLegacyPackageNameIgnoresCase(t *testing.T) {
	set := dependency.NewSet([]dependency.Record{
		dependency.NewRecord("Django==3.2.0", dependency.Metadata{LicenseType: "BSD-3-Clause"}),
	})

	deny, err := NewLegacy("package_name", "", "DJANGO")
	require.NoError(t, err)
	violations, err := deny.Evaluate(set)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "'django' is a restricted package based on policy. (from django==3.2.0)", violations[0].Message)

	allow, err := NewLegacy("package_name", "Django", "")
	require.NoError(t, err)
	violations, err = allow.Evaluate(set)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestLegacyLicenseTypeKeepsCase(t *testing.T) {
	p, err := NewLegacy("license_type", "", "apache-2.0")
	require.NoError(t, err)
	violations, err := p.Evaluate(legacySet())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestNewLegacyUnknownKind(t *testing.T) {
	_, err := NewLegacy("maintainer", "", "")
	assert.Error(t, err)
}
