// Package vulndb maintains a local copy of the published vulnerability
// database and answers lookups by package name.
package vulndb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gh "github.com/google/go-github/v60/github"
)

// Default location of the published database.
const (
	DefaultOwner = "ochronasec"
	DefaultRepo  = "ochrona_python_vulnerabilities"
)

// Release is a published database archive.
type Release struct {
	Name      string `json:"name"`
	AssetID   int64  `json:"asset_id"`
	AssetName string `json:"asset_name"`
}

// ReleaseSource finds and downloads database releases.
type ReleaseSource interface {
	Latest(ctx context.Context) (Release, error)
	Download(ctx context.Context, rel Release) (io.ReadCloser, error)
}

// GitHubSource reads releases of a GitHub repository.
type GitHubSource struct {
	client *gh.Client
	http   *http.Client
	Owner  string
	Repo   string
}

// NewGitHubSource creates a release source. The token is optional; it
// raises the API rate limit when set.
func NewGitHubSource(token, owner, repo string) *GitHubSource {
	httpClient := &http.Client{Timeout: 2 * time.Minute}
	if token != "" {
		httpClient.Transport = &tokenTransport{token: token}
	}
	return &GitHubSource{
		client: gh.NewClient(httpClient),
		http:   &http.Client{Timeout: 2 * time.Minute},
		Owner:  owner,
		Repo:   repo,
	}
}

// tokenTransport adds Bearer token auth to HTTP requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// Latest returns the release with the greatest name that carries an
// archive asset. Release names are date stamped, so textual order is
// publication order.
func (s *GitHubSource) Latest(ctx context.Context) (Release, error) {
	releases, _, err := s.client.Repositories.ListReleases(ctx, s.Owner, s.Repo, &gh.ListOptions{PerPage: 100})
	if err != nil {
		return Release{}, fmt.Errorf("list releases %s/%s: %w", s.Owner, s.Repo, err)
	}

	var best Release
	for _, r := range releases {
		if len(r.Assets) == 0 {
			continue
		}
		name := r.GetName()
		if best.Name != "" && name <= best.Name {
			continue
		}
		best = Release{
			Name:      name,
			AssetID:   r.Assets[0].GetID(),
			AssetName: r.Assets[0].GetName(),
		}
	}
	if best.Name == "" {
		return Release{}, fmt.Errorf("no database releases published in %s/%s", s.Owner, s.Repo)
	}
	return best, nil
}

func (s *GitHubSource) Download(ctx context.Context, rel Release) (io.ReadCloser, error) {
	rc, redirect, err := s.client.Repositories.DownloadReleaseAsset(ctx, s.Owner, s.Repo, rel.AssetID, s.http)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rel.AssetName, err)
	}
	if rc != nil {
		return rc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, redirect, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rel.AssetName, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rel.AssetName, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %s", rel.AssetName, resp.Status)
	}
	return resp.Body, nil
}
