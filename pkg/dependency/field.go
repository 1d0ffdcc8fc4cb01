package dependency

// Field names a piece of dependency metadata that policy expressions can
// refer to. The set is closed.
type Field string

const (
	FieldLicenseType   Field = "license_type"
	FieldLatestVersion Field = "latest_version"
	FieldLatestUpdate  Field = "latest_update"
	FieldReleaseCount  Field = "release_count"
	FieldName          Field = "name"
)

// Fields lists every policy-visible field.
var Fields = []Field{
	FieldLicenseType,
	FieldLatestVersion,
	FieldLatestUpdate,
	FieldReleaseCount,
	FieldName,
}

// ParseField resolves a field name used in a policy expression.
func ParseField(name string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// FieldNames returns the policy-visible field names as strings.
func FieldNames() []string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = string(f)
	}
	return names
}
