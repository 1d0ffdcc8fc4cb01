package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/requirement"
)

// BOM is a CycloneDX 1.4 software bill of materials.
type BOM struct {
	BOMFormat    string      `json:"bomFormat"`
	SpecVersion  string      `json:"specVersion"`
	SerialNumber string      `json:"serialNumber"`
	Version      int         `json:"version"`
	Metadata     BOMMetadata `json:"metadata"`
	Components   []Component `json:"components"`
}

type BOMMetadata struct {
	Timestamp string `json:"timestamp"`
	Tools     []Tool `json:"tools"`
}

type Tool struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Component struct {
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Version  string          `json:"version,omitempty"`
	PURL     string          `json:"purl"`
	Licenses []LicenseChoice `json:"licenses,omitempty"`
}

type LicenseChoice struct {
	License License `json:"license"`
}

type License struct {
	Name string `json:"name"`
}

// NewBOM lists every resolved dependency of set as a library component.
func NewBOM(set *dependency.Set, toolVersion string, now time.Time) BOM {
	bom := BOM{
		BOMFormat:    "CycloneDX",
		SpecVersion:  "1.4",
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Version:      1,
		Metadata: BOMMetadata{
			Timestamp: now.UTC().Format(time.RFC3339),
			Tools:     []Tool{{Vendor: "depsentry", Name: "depsentry", Version: toolVersion}},
		},
		Components: []Component{},
	}
	for _, r := range set.Records() {
		version := requirement.Split(r.Full).Version
		c := Component{
			Type:    "library",
			Name:    r.Name,
			Version: version,
			PURL:    purl(r.Name, version),
		}
		if r.LicenseType != "" {
			c.Licenses = []LicenseChoice{{License: License{Name: r.LicenseType}}}
		}
		bom.Components = append(bom.Components, c)
	}
	return bom
}

// JSON encodes the document.
func (b BOM) JSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

func purl(name, version string) string {
	if version == "" {
		return "pkg:pypi/" + name
	}
	return "pkg:pypi/" + name + "@" + version
}
