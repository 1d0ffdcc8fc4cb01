// Package scan runs the analysis pipeline over dependency inputs:
// metadata resolution, vulnerability matching, then policy evaluation.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cgast/depsentry/internal/telemetry"
	"github.com/cgast/depsentry/pkg/dependency"
	"github.com/cgast/depsentry/pkg/events"
	"github.com/cgast/depsentry/pkg/manifest"
	"github.com/cgast/depsentry/pkg/policy"
	"github.com/cgast/depsentry/pkg/requirement"
	"github.com/cgast/depsentry/pkg/vuln"
)

// DefaultWorkers bounds how many inputs are analysed at once.
const DefaultWorkers = 4

// VulnSource returns the candidate vulnerabilities for a package name.
type VulnSource interface {
	LookupByName(ctx context.Context, name string) ([]vuln.Vulnerability, error)
}

// MetadataSource returns package index metadata for a package name.
type MetadataSource interface {
	Fetch(ctx context.Context, name string) (dependency.Metadata, error)
}

// Input is one named list of requirement strings.
type Input struct {
	Source       string
	Requirements []string
}

// Result is the analysed dependency set of one input.
type Result struct {
	Source string          `json:"source"`
	Set    *dependency.Set `json:"results"`
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithPolicies sets the policies evaluated for every input.
func WithPolicies(p ...policy.Policy) Option {
	return func(s *Scanner) { s.policies = p }
}

// WithIgnore drops confirmed vulnerabilities whose CVE id or package
// name is listed.
func WithIgnore(ignore ...string) Option {
	return func(s *Scanner) {
		s.ignore = make(map[string]bool, len(ignore))
		for _, v := range ignore {
			if v = strings.TrimSpace(v); v != "" {
				s.ignore[strings.ToLower(v)] = true
			}
		}
	}
}

// WithWorkers bounds concurrent inputs. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithEvents publishes scan progress to bus.
func WithEvents(bus events.EventBus) Option {
	return func(s *Scanner) { s.events = bus }
}

// WithMetrics records scan counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// Scanner analyses dependency inputs. It is safe for concurrent use.
type Scanner struct {
	vulns    VulnSource
	meta     MetadataSource
	policies []policy.Policy
	ignore   map[string]bool
	workers  int
	events   events.EventBus
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// New creates a scanner over the given collaborators.
func New(vulns VulnSource, meta MetadataSource, opts ...Option) *Scanner {
	s := &Scanner{
		vulns:   vulns,
		meta:    meta,
		workers: DefaultWorkers,
		events:  events.Discard{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanFiles parses each discovered file and analyses it.
func (s *Scanner) ScanFiles(ctx context.Context, files []manifest.File, opts manifest.Options) ([]Result, error) {
	inputs := make([]Input, 0, len(files))
	for _, f := range files {
		reqs, err := f.Parser.Parse(f.Path, opts)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("parsed dependency file", "path", f.Path, "format", f.Parser.Name(), "count", len(reqs))
		s.publish(events.EventFileParsed, "", f.Path, map[string]any{
			"format":       f.Parser.Name(),
			"requirements": len(reqs),
		}, 0)
		inputs = append(inputs, Input{Source: f.Path, Requirements: reqs})
	}
	return s.Scan(ctx, inputs)
}

// Scan analyses every input concurrently. Results keep input order. The
// first fault cancels the remaining work and is returned.
func (s *Scanner) Scan(ctx context.Context, inputs []Input) ([]Result, error) {
	results := make([]Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, in := range inputs {
		g.Go(func() error {
			set, err := s.Analyse(ctx, in)
			if err != nil {
				return fmt.Errorf("scan %s: %w", in.Source, err)
			}
			results[i] = Result{Source: in.Source, Set: set}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Analyse runs the pipeline for a single input.
func (s *Scanner) Analyse(ctx context.Context, in Input) (*dependency.Set, error) {
	scanID := uuid.NewString()
	start := time.Now()
	s.publish(events.EventScanStart, scanID, in.Source, map[string]any{
		"requirements": len(in.Requirements),
	}, 0)

	set, err := s.analyse(ctx, scanID, in)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ScanFinished(elapsed, err)
	}
	if err != nil {
		s.publish(events.EventScanError, scanID, in.Source, map[string]any{"error": err.Error()}, elapsed)
		return nil, err
	}

	s.publish(events.EventScanEnd, scanID, in.Source, map[string]any{
		"dependencies":    len(set.FlatList),
		"vulnerabilities": len(set.ConfirmedVulnerabilities),
		"violations":      len(set.PolicyViolations),
	}, elapsed)
	s.logger.Info("scan complete",
		"source", in.Source,
		"dependencies", len(set.FlatList),
		"vulnerabilities", len(set.ConfirmedVulnerabilities),
		"violations", len(set.PolicyViolations),
		"duration", elapsed)
	return set, nil
}

func (s *Scanner) analyse(ctx context.Context, scanID string, in Input) (*dependency.Set, error) {
	records, err := s.resolve(ctx, scanID, in)
	if err != nil {
		return nil, err
	}
	set := dependency.NewSet(records)
	if s.metrics != nil {
		s.metrics.DependenciesResolved(len(set.FlatList))
	}

	if err := s.matchVulnerabilities(ctx, scanID, in.Source, set); err != nil {
		return nil, err
	}

	if len(s.policies) > 0 {
		if err := policy.Apply(ctx, set, s.policies); err != nil {
			return nil, err
		}
		for _, v := range set.PolicyViolations {
			s.publish(events.EventPolicyViolated, scanID, in.Source, v, 0)
			if s.metrics != nil {
				s.metrics.PolicyViolated(v.PolicyType)
			}
		}
	}
	return set, nil
}

// resolve looks up index metadata for every requirement. A lookup that
// fails for reasons other than cancellation degrades to unknown metadata.
func (s *Scanner) resolve(ctx context.Context, scanID string, in Input) ([]dependency.Record, error) {
	records := make([]dependency.Record, 0, len(in.Requirements))
	for _, raw := range in.Requirements {
		if requirement.IsReference(raw) {
			records = append(records, dependency.NewRecord(raw, dependency.Metadata{}))
			continue
		}
		meta := dependency.UnknownMetadata()
		if s.meta != nil {
			name := requirement.Split(raw).Name
			m, err := s.meta.Fetch(ctx, name)
			switch {
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case err != nil:
				s.logger.Warn("metadata lookup failed", "package", name, "error", err)
			default:
				meta = m
			}
		}
		rec := dependency.NewRecord(raw, meta)
		s.publish(events.EventDependencyFound, scanID, in.Source, rec, 0)
		records = append(records, rec)
	}
	return records, nil
}

func (s *Scanner) matchVulnerabilities(ctx context.Context, scanID, source string, set *dependency.Set) error {
	if s.vulns == nil {
		return nil
	}
	var candidates []vuln.Vulnerability
	for _, dep := range set.FlatList {
		found, err := s.vulns.LookupByName(ctx, requirement.Split(dep).Name)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", dep, err)
		}
		candidates = append(candidates, found...)
	}
	if len(candidates) == 0 {
		return nil
	}

	confirmed, err := vuln.Match(candidates, set.FlatList)
	if err != nil {
		return err
	}
	set.AddVulnerabilities(confirmed...)
	if len(s.ignore) > 0 {
		set.FilterVulnerabilities(s.ignored)
	}
	for _, v := range set.ConfirmedVulnerabilities {
		s.publish(events.EventVulnConfirmed, scanID, source, v, 0)
		if s.metrics != nil {
			s.metrics.VulnerabilityConfirmed(v.Severity())
		}
	}
	return nil
}

func (s *Scanner) ignored(v vuln.Confirmed) bool {
	return s.ignore[strings.ToLower(v.CVEID)] || s.ignore[strings.ToLower(v.Name)]
}

func (s *Scanner) publish(typ events.EventType, scanID, source string, data any, d time.Duration) {
	e := events.NewEvent(typ, scanID, data).WithSource(source)
	e.Duration = d
	s.events.Publish(e)
}

// ExitCode is 1 when any result has findings, unless findings are
// tolerated.
func ExitCode(results []Result, tolerate bool) int {
	if tolerate {
		return 0
	}
	for _, r := range results {
		if r.Set != nil && r.Set.HasFindings() {
			return 1
		}
	}
	return 0
}
