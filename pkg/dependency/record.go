// Package dependency models the dependencies found in one scan input and
// the findings attached to them.
package dependency

import (
	"github.com/cgast/depsentry/pkg/expr"
	"github.com/cgast/depsentry/pkg/requirement"
)

// Metadata is what the package index reports about a package. Empty
// strings mean the value is unknown.
type Metadata struct {
	LatestVersion string `json:"latest_version"`
	LicenseType   string `json:"license_type"`
	LatestUpdate  string `json:"latest_update"`
	ReleaseCount  string `json:"release_count"`
}

// UnknownMetadata is used when the index has no entry for a package.
func UnknownMetadata() Metadata {
	return Metadata{LicenseType: UnknownLicense}
}

// Record is one declared dependency together with its resolved metadata.
type Record struct {
	Raw         string `json:"raw"`
	Name        string `json:"name"`
	Operator    string `json:"operator,omitempty"`
	Version     string `json:"version,omitempty"`
	Full        string `json:"full"`
	IsReference bool   `json:"is_reference,omitempty"`
	Metadata
}

// NewRecord builds a record from a raw requirement line and the metadata
// resolved for its package name.
func NewRecord(raw string, meta Metadata) Record {
	if requirement.IsReference(raw) {
		return Record{Raw: raw, IsReference: true}
	}
	req := requirement.Split(raw)
	r := Record{
		Raw:      raw,
		Name:     req.Name,
		Operator: req.Operator,
		Version:  req.Version,
		Metadata: meta,
	}
	r.Full = r.providedOrMostRecent(req)
	return r
}

// providedOrMostRecent picks the version a resolver would install: a
// lower bound the latest release satisfies, or no constraint at all,
// resolves to the latest release.
func (r Record) providedOrMostRecent(req requirement.Requirement) string {
	if r.LatestVersion == "" {
		return req.String()
	}
	if r.Operator == ">=" {
		if c, _ := expr.CompareVersions(r.Version, r.LatestVersion); c <= 0 {
			return r.Name + "==" + r.LatestVersion
		}
	}
	if r.Operator == "" && r.Version == "" {
		return r.Name + "==" + r.LatestVersion
	}
	return req.String()
}

// Value returns the record's value for a policy field. ok is false when
// the record does not carry the field.
func (r Record) Value(f Field) (string, bool) {
	var v string
	switch f {
	case FieldName:
		v = r.Name
	case FieldLicenseType:
		v = r.LicenseType
	case FieldLatestVersion:
		v = r.LatestVersion
	case FieldLatestUpdate:
		v = r.LatestUpdate
	case FieldReleaseCount:
		v = r.ReleaseCount
	}
	return v, v != ""
}
