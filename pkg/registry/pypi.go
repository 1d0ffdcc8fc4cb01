// Package registry resolves package metadata from the Python Package
// Index.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cgast/depsentry/internal/cache"
	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/expr"
)

// DefaultBaseURL is the PyPI JSON API root.
const DefaultBaseURL = "https://pypi.org/pypi"

const updateLayout = "2006-01-02T15:04:05Z"

// PyPI fetches package metadata, caching responses in Cache.
type PyPI struct {
	HTTPClient *http.Client
	BaseURL    string
	Cache      cache.Store
	Logger     *slog.Logger
}

// NewPyPI creates a client against the public index.
func NewPyPI(store cache.Store, logger *slog.Logger) *PyPI {
	if store == nil {
		store = cache.NewMemory(cache.DefaultTTL)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PyPI{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    DefaultBaseURL,
		Cache:      store,
		Logger:     logger,
	}
}

type release struct {
	UploadTime string `json:"upload_time_iso_8601"`
}

type projectResponse struct {
	Info struct {
		Version *string `json:"version"`
		License *string `json:"license"`
	} `json:"info"`
	Releases map[string][]release `json:"releases"`
}

// Fetch returns the metadata for name. A package the index does not know
// yields UnknownMetadata without an error.
func (p *PyPI) Fetch(ctx context.Context, name string) (dependency.Metadata, error) {
	var meta dependency.Metadata
	if ok, err := p.Cache.Get(cache.BucketRegistry, name, &meta); err != nil {
		p.Logger.Debug("registry cache read failed", "package", name, "error", err)
		if err := p.Cache.Delete(cache.BucketRegistry, name); err != nil {
			p.Logger.Debug("registry cache delete failed", "package", name, "error", err)
		}
	} else if ok {
		return meta, nil
	}

	endpoint := fmt.Sprintf("%s/%s/json", p.BaseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return dependency.UnknownMetadata(), fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return dependency.UnknownMetadata(), fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		meta = dependency.UnknownMetadata()
	case resp.StatusCode != http.StatusOK:
		return dependency.UnknownMetadata(), fmt.Errorf("fetch %s: registry returned status %s", name, resp.Status)
	default:
		var body projectResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return dependency.UnknownMetadata(), fmt.Errorf("decode %s: %w", name, err)
		}
		meta = body.metadata()
	}

	if err := p.Cache.Set(cache.BucketRegistry, name, meta); err != nil {
		p.Logger.Debug("registry cache write failed", "package", name, "error", err)
	}
	return meta, nil
}

func (r projectResponse) metadata() dependency.Metadata {
	latest := r.latestVersion()
	license := dependency.UnknownLicense
	if r.Info.License != nil {
		license = dependency.NormalizeLicense(*r.Info.License)
	}
	return dependency.Metadata{
		LatestVersion: latest,
		LicenseType:   license,
		LatestUpdate:  r.latestUpdate(latest),
		ReleaseCount:  strconv.Itoa(len(r.Releases)),
	}
}

func (r projectResponse) latestVersion() string {
	if r.Info.Version != nil {
		return *r.Info.Version
	}
	if len(r.Releases) < 2 {
		return ""
	}
	var latest string
	for v := range r.Releases {
		if c, _ := expr.CompareVersions(v, latest); latest == "" || c > 0 {
			latest = v
		}
	}
	return latest
}

// latestUpdate is the newest artifact upload time of the latest release.
func (r projectResponse) latestUpdate(latest string) string {
	var newest time.Time
	for _, artifact := range r.Releases[latest] {
		t, err := time.Parse(time.RFC3339Nano, artifact.UploadTime)
		if err != nil {
			continue
		}
		if t.After(newest) {
			newest = t
		}
	}
	if newest.IsZero() {
		return ""
	}
	return newest.UTC().Format(updateLayout)
}
