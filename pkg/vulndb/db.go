package vulndb

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/cgast/depsentry/internal/cache"
	"github.com/cgast/depsentry/pkg/events"
	"github.com/cgast/depsentry/pkg/vuln"
)

const (
	archiveSuffix    = ".tar.gz"
	latestReleaseKey = "latest_release"
)

// DB is a local vulnerability database archive.
type DB struct {
	dir    string
	source ReleaseSource
	cache  cache.Store
	events events.EventBus
	logger *slog.Logger

	mu      sync.Mutex
	version string
	entries map[string][]byte
}

// Option configures a DB.
type Option func(*DB)

// WithCache sets the store used to rate-limit release checks.
func WithCache(store cache.Store) Option {
	return func(d *DB) { d.cache = store }
}

// WithEvents publishes a database.updated event whenever a new archive
// is installed.
func WithEvents(bus events.EventBus) Option {
	return func(d *DB) { d.events = bus }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) { d.logger = logger }
}

// Open prepares the database in dir: an archive already present is kept
// unless the source has a newer release; otherwise the latest release is
// downloaded.
func Open(ctx context.Context, dir string, source ReleaseSource, opts ...Option) (*DB, error) {
	d := &DB{
		dir:    dir,
		source: source,
		cache:  cache.NewMemory(cache.DefaultTTL),
		events: events.Discard{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	local, err := d.localVersion()
	if err != nil {
		return nil, err
	}
	if local == "" {
		if _, err := d.Update(ctx, true); err != nil {
			return nil, err
		}
		return d, nil
	}

	d.version = local
	d.logger.Debug("database found", "version", local)
	if _, err := d.Update(ctx, false); err != nil {
		d.logger.Error("checking for database update failed", "error", err)
	}
	return d, nil
}

// Version is the release name of the archive in use.
func (d *DB) Version() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

func (d *DB) archivePath(version string) string {
	return filepath.Join(d.dir, version+archiveSuffix)
}

func (d *DB) localVersion() (string, error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*"+archiveSuffix))
	if err != nil {
		return "", fmt.Errorf("find database archive: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return strings.TrimSuffix(filepath.Base(matches[len(matches)-1]), archiveSuffix), nil
}

// Update downloads the latest release when it is newer than the local
// archive, or unconditionally when force is set. It reports whether a new
// archive was installed. Release lookups are cached so unforced checks
// reach the source at most once per cache period; force drops the cached
// lookup first.
func (d *DB) Update(ctx context.Context, force bool) (bool, error) {
	if force {
		if err := d.cache.Delete(cache.BucketDatabase, latestReleaseKey); err != nil {
			d.logger.Debug("dropping cached release lookup failed", "error", err)
		}
	}
	var rel Release
	ok, err := d.cache.Get(cache.BucketDatabase, latestReleaseKey, &rel)
	if err != nil || !ok || force {
		if rel, err = d.source.Latest(ctx); err != nil {
			return false, err
		}
		if err := d.cache.Set(cache.BucketDatabase, latestReleaseKey, rel); err != nil {
			d.logger.Debug("caching release lookup failed", "error", err)
		}
	}

	current := d.Version()
	version := strings.TrimSuffix(rel.AssetName, archiveSuffix)
	if !force && current != "" && version <= current {
		return false, nil
	}
	if err := d.install(ctx, rel, version); err != nil {
		return false, err
	}
	d.logger.Debug("database updated", "version", version)
	d.events.Publish(events.NewEvent(events.EventDatabaseUpdated, "", map[string]any{
		"version":  version,
		"previous": current,
	}))
	return true, nil
}

func (d *DB) install(ctx context.Context, rel Release, version string) error {
	rc, err := d.source.Download(ctx, rel)
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(d.dir, "download-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	old, _ := filepath.Glob(filepath.Join(d.dir, "*"+archiveSuffix))
	for _, f := range old {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove old archive: %w", err)
		}
	}
	if err := os.Rename(tmp.Name(), d.archivePath(version)); err != nil {
		return fmt.Errorf("install archive: %w", err)
	}

	d.mu.Lock()
	d.version = version
	d.entries = nil
	d.mu.Unlock()
	return nil
}

// load reads every archive member into memory once per installed
// version.
func (d *DB) load() (map[string][]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entries != nil {
		return d.entries, nil
	}
	if d.version == "" {
		return nil, errors.New("no vulnerability database installed")
	}

	f, err := os.Open(d.archivePath(d.version))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read database %s: %w", d.version, err)
	}
	defer zr.Close()

	entries := make(map[string][]byte)
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read database %s: %w", d.version, err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".json") {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		entries[hdr.Name] = data
	}
	d.entries = entries
	return entries, nil
}

func memberPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`^(\./)?vulns/(` + regexp.QuoteMeta(name) + `)[-A-Z0-9]*\.json`)
}

// LookupByName returns the records filed under a package name, ordered by
// archive path.
func (d *DB) LookupByName(ctx context.Context, name string) ([]vuln.Vulnerability, error) {
	entries, err := d.load()
	if err != nil {
		return nil, err
	}

	pattern := memberPattern(name)
	var paths []string
	for p := range entries {
		if pattern.MatchString(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := make([]vuln.Vulnerability, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var v vuln.Vulnerability
		if err := json.Unmarshal(entries[p], &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		out = append(out, v)
	}
	d.logger.Debug("vulnerability lookup", "package", name, "candidates", len(out))
	return out, nil
}
