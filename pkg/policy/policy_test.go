package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/depsentry/pkg/dependency"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fakeSet(meta dependency.Metadata) *dependency.Set {
	return dependency.NewSet([]dependency.Record{dependency.NewRecord("fake==1.2.3", meta)})
}

func evaluate(t *testing.T, text string, set *dependency.Set) []dependency.PolicyViolation {
	t.Helper()
	p, err := NewExpression(text)
	require.NoError(t, err)
	p.now = func() time.Time { return fixedNow }
	violations, err := p.Evaluate(set)
	require.NoError(t, err)
	return violations
}

func TestExpressionPolicies(t *testing.T) {
	hundredDaysAgo := fixedNow.Add(-100 * 24 * time.Hour).Format("2006-01-02T15:04:05.000000Z")
	tests := []struct {
		name   string
		policy string
		meta   dependency.Metadata
		want   int
	}{
		{"equals pass", "license_type==MIT", dependency.Metadata{LicenseType: "MIT"}, 0},
		{"equals fail", "license_type==Apache-2.0", dependency.Metadata{LicenseType: "MIT"}, 1},
		{"in pass", "license_type IN MIT,ISC", dependency.Metadata{LicenseType: "MIT"}, 0},
		{"in fail", "license_type IN Apache-2.0,ISC", dependency.Metadata{LicenseType: "MIT"}, 1},
		{"not in pass", "license_type NIN GPL-3.0-only", dependency.Metadata{LicenseType: "MIT"}, 0},
		{"not equals pass", "license_type!=ISC", dependency.Metadata{LicenseType: "MIT"}, 0},
		{"not equals fail", "license_type!=MIT", dependency.Metadata{LicenseType: "MIT"}, 1},
		{"date greater fail", "latest_update > NOW-30", dependency.Metadata{LatestUpdate: hundredDaysAgo}, 1},
		{"date smaller pass", "latest_update < NOW-30", dependency.Metadata{LatestUpdate: hundredDaysAgo}, 0},
		{"date without fraction", "latest_update > 2020-01-01T00:00:00Z", dependency.Metadata{LatestUpdate: "2023-05-01T10:00:00Z"}, 0},
		{"semver smaller pass", "latest_version < 10.0.0", dependency.Metadata{LatestVersion: "3.0.1"}, 0},
		{"semver greater fail", "latest_version > 10.0.0", dependency.Metadata{LatestVersion: "3.0.1"}, 1},
		{"number smaller pass", "release_count < 20", dependency.Metadata{ReleaseCount: "10"}, 0},
		{"number greater equal fail", "release_count >= 20", dependency.Metadata{ReleaseCount: "10"}, 1},
		{"and pass", "license_type==MIT AND license_type!=ISC", dependency.Metadata{LicenseType: "MIT"}, 0},
		{"and fail", "license_type==MIT AND license_type!=MIT", dependency.Metadata{LicenseType: "MIT"}, 1},
		{"or pass", "license_type==MIT OR license_type!=ISC", dependency.Metadata{LicenseType: "MIT"}, 0},
		{"or fail", "license_type==Apache-2.0 OR license_type==ISC", dependency.Metadata{LicenseType: "MIT"}, 1},
		{"missing field skipped", "release_count > 5", dependency.Metadata{LicenseType: "MIT"}, 0},
		{"wildcard", "license_type==*", dependency.Metadata{LicenseType: "MIT"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, evaluate(t, tt.policy, fakeSet(tt.meta)), tt.want)
		})
	}
}

func TestExpressionViolationNamesOffenders(t *testing.T) {
	set := dependency.NewSet([]dependency.Record{dependency.NewRecord("fake==9.9.9", dependency.Metadata{})})
	violations := evaluate(t, "name IN requests,click,pytest", set)
	require.Len(t, violations, 1)
	assert.Equal(t, dependency.PolicyViolation{
		PolicyType:         "custom",
		FriendlyPolicyType: "Custom Policy",
		Message:            "Policy violated by fake==9.9.9",
	}, violations[0])
}

func TestExpressionOffendersDeduplicated(t *testing.T) {
	violations := evaluate(t, "license_type==Apache-2.0 OR license_type==ISC", fakeSet(dependency.Metadata{LicenseType: "MIT"}))
	require.Len(t, violations, 1)
	assert.Equal(t, "Policy violated by fake==1.2.3", violations[0].Message)
}

func TestExpressionFirstOffenderOnly(t *testing.T) {
	set := dependency.NewSet([]dependency.Record{
		dependency.NewRecord("a==1.0.0", dependency.Metadata{LicenseType: "MIT"}),
		dependency.NewRecord("b==1.0.0", dependency.Metadata{LicenseType: "GPL"}),
		dependency.NewRecord("c==1.0.0", dependency.Metadata{LicenseType: "GPL"}),
	})
	violations := evaluate(t, "license_type==MIT", set)
	require.Len(t, violations, 1)
	assert.Equal(t, "Policy violated by b==1.0.0", violations[0].Message)
}

func TestExpressionComparisonFault(t *testing.T) {
	p, err := NewExpression("release_count > 5")
	require.NoError(t, err)
	_, err = p.Evaluate(fakeSet(dependency.Metadata{ReleaseCount: "many"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		policy string
		valid  bool
	}{
		{"license_type==MIT", true},
		{"name IN a,b AND release_count>3", true},
		{"(latest_version>1.0.0 OR latest_update<NOW-30) AND name!=x", true},
		{"version==1.0.0", false},
		{"bad_field==x", false},
		{"license_type==", false},
		{"(license_type==MIT", false},
		{"license_type==MIT AND", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			err := Validate(tt.policy)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPolicy)
			assert.Equal(t, "policy could not be parsed or contains an invalid field", err.Error())
		})
	}
}

func TestNewExpressionRejectsInvalid(t *testing.T) {
	_, err := NewExpression("nope==1")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestApply(t *testing.T) {
	set := dependency.NewSet([]dependency.Record{
		dependency.NewRecord("requests==2.19.0", dependency.Metadata{LicenseType: "Apache-2.0"}),
		dependency.NewRecord("leftpad==1.0.0", dependency.Metadata{LicenseType: "WTFPL"}),
	})
	expression, err := NewExpression("license_type IN Apache-2.0,MIT")
	require.NoError(t, err)
	legacy, err := NewLegacy("package_name", "", "leftpad")
	require.NoError(t, err)

	require.NoError(t, Apply(context.Background(), set, []Policy{expression, legacy}))
	assert.Len(t, set.PolicyViolations, 2)
}

func TestApplyPropagatesFault(t *testing.T) {
	set := fakeSet(dependency.Metadata{ReleaseCount: "many"})
	p, err := NewExpression("release_count > 5")
	require.NoError(t, err)
	assert.Error(t, Apply(context.Background(), set, []Policy{p}))
}

func TestApplyKeepsPolicyOrder(t *testing.T) {
	newSet := func() *dependency.Set {
		return dependency.NewSet([]dependency.Record{
			dependency.NewRecord("leftpad==1.0.0", dependency.Metadata{LicenseType: "WTFPL"}),
		})
	}
	names, err := NewLegacy("package_name", "", "leftpad")
	require.NoError(t, err)
	licenses, err := NewLegacy("license_type", "", "WTFPL")
	require.NoError(t, err)
	expression, err := NewExpression("license_type==MIT")
	require.NoError(t, err)
	policies := []Policy{names, licenses, expression}

	first := newSet()
	require.NoError(t, Apply(context.Background(), first, policies))
	var types []string
	for _, v := range first.PolicyViolations {
		types = append(types, v.PolicyType)
	}
	require.Equal(t, []string{"package_name", "license_type", "custom"}, types)

	for i := 0; i < 200; i++ {
		again := newSet()
		require.NoError(t, Apply(context.Background(), again, policies))
		require.Equal(t, first.PolicyViolations, again.PolicyViolations)
	}
}

func TestApplyLeavesSetOnFault(t *testing.T) {
	set := fakeSet(dependency.Metadata{ReleaseCount: "many", LicenseType: "GPL"})
	bad, err := NewExpression("release_count > 5")
	require.NoError(t, err)
	deny, err := NewLegacy("license_type", "", "GPL")
	require.NoError(t, err)

	assert.Error(t, Apply(context.Background(), set, []Policy{deny, bad}))
	assert.Empty(t, set.PolicyViolations)
}

func TestApplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deny, err := NewLegacy("license_type", "", "MIT")
	require.NoError(t, err)
	set := fakeSet(dependency.Metadata{LicenseType: "MIT"})

	assert.ErrorIs(t, Apply(ctx, set, []Policy{deny}), context.Canceled)
	assert.Empty(t, set.PolicyViolations)
}

func TestExpressionNameIgnoresCase(t *testing.T) {
	set := dependency.NewSet([]dependency.Record{dependency.NewRecord("Django==3.2.0", dependency.Metadata{})})
	assert.Empty(t, evaluate(t, "name IN Django,Flask", set))

	violations := evaluate(t, "name!=Django", set)
	require.Len(t, violations, 1)
	assert.Equal(t, "Policy violated by django==3.2.0", violations[0].Message)
}
