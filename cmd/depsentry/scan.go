package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cgast/depsentry/internal/config"
	"github.com/cgast/depsentry/internal/telemetry"
	"github.com/cgast/depsentry/pkg/events"
	"github.com/cgast/depsentry/pkg/manifest"
	"github.com/cgast/depsentry/pkg/report"
	"github.com/cgast/depsentry/pkg/scan"
)

func newScanCmd(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan dependency files for vulnerabilities and policy violations",
		Long: `Scan discovers requirements, constraints, Pipfile.lock, poetry.lock,
environment.yml and tox.ini files below --dir, or reads the single --file.
With --file - requirements are read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runScan(ctx, s, cfg)
		},
	}

	f := cmd.Flags()
	f.String("dir", "", "directory to search recursively for dependency files")
	f.StringSlice("exclude-dir", nil, "directory names or paths to skip during discovery")
	f.StringP("file", "r", "", "single dependency file to scan, or - for stdin")
	f.String("report-type", "BASIC", "report type: BASIC, FULL, JSON, XML or HTML")
	f.String("output", "", "directory to write reports to")
	f.Bool("exit", false, "exit with status 0 regardless of findings")
	f.StringSlice("ignore", nil, "CVE ids or package names to ignore")
	f.Bool("include-dev", false, "include development dependencies where the format records them")
	f.Bool("color", true, "colour text reports")
	f.Bool("sbom", false, "also write a CycloneDX SBOM per scanned file")
	f.Int("workers", scan.DefaultWorkers, "files analysed concurrently")
	f.String("github-token", "", "GitHub token for downloading the vulnerability database")
	return cmd
}

func runScan(ctx context.Context, s streams, cfg config.Config) error {
	logger := newLogger(s, cfg)

	inputs, files, err := collectInputs(s.in, cfg, logger)
	if err != nil {
		return err
	}

	policies, err := cfg.BuildPolicies()
	if err != nil {
		return err
	}

	bus := events.NewMemoryBus(0)
	b, err := openBackends(ctx, cfg, bus, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	scanner := scan.New(b.db, b.pypi,
		scan.WithPolicies(policies...),
		scan.WithIgnore(cfg.Ignore...),
		scan.WithWorkers(cfg.Workers),
		scan.WithEvents(bus),
		scan.WithMetrics(telemetry.NewMetrics()),
		scan.WithLogger(logger),
	)

	var results []scan.Result
	if files != nil {
		results, err = scanner.ScanFiles(ctx, files, manifest.Options{IncludeDev: cfg.IncludeDev})
	} else {
		results, err = scanner.Scan(ctx, inputs)
	}
	if err != nil {
		return err
	}

	reportType, err := report.ParseType(cfg.ReportType)
	if err != nil {
		return err
	}
	r := report.New(s.out, report.Options{
		Type:        reportType,
		Location:    cfg.ReportLocation,
		Color:       cfg.ColorOutput,
		SBOM:        cfg.SBOM,
		ToolVersion: version,
	}, logger)
	if err := r.Write(results); err != nil {
		return err
	}

	if code := scan.ExitCode(results, cfg.Exit); code != 0 {
		return exitCode(code)
	}
	return nil
}

// collectInputs returns either piped requirements or the dependency files
// to parse, never both.
func collectInputs(stdin io.Reader, cfg config.Config, logger *slog.Logger) ([]scan.Input, []manifest.File, error) {
	reg := manifest.DefaultRegistry()

	switch {
	case cfg.File == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		return []scan.Input{{Source: "stdin", Requirements: manifest.ParseRequirementsText(string(data))}}, nil, nil

	case cfg.File != "":
		abs, err := filepath.Abs(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		p, ok := reg.Match("/" + filepath.ToSlash(filepath.Base(abs)))
		if !ok {
			// Unrecognised names are read as plain requirements files.
			p, _ = reg.Resolve("requirements")
		}
		return nil, []manifest.File{{Path: cfg.File, Parser: p}}, nil
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	files, err := manifest.Discover(dir, cfg.ExcludeDirs, reg)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no dependency files found in %s", dir)
	}
	logger.Info("discovered dependency files", "dir", dir, "count", len(files))
	return nil, files, nil
}
