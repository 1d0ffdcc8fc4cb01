// Package report renders scan results for people and for CI systems.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cgast/depsentry/pkg/scan"
)

// Type selects the report format.
type Type string

const (
	Basic Type = "BASIC"
	Full  Type = "FULL"
	JSON  Type = "JSON"
	XML   Type = "XML"
	HTML  Type = "HTML"
)

// Types lists the supported formats.
var Types = []Type{Basic, Full, JSON, XML, HTML}

// ParseType resolves a case-insensitive report type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown report type %q", s)
}

func (t Type) extension() string {
	switch t {
	case JSON:
		return "json"
	case XML:
		return "xml"
	case HTML:
		return "html"
	}
	return "txt"
}

// Options configure a Reporter.
type Options struct {
	Type Type
	// Location is a directory; when set each report is written to its own
	// file there instead of to the output stream.
	Location string
	Color    bool
	// SBOM also writes a CycloneDX document per result into Location, or
	// the working directory when Location is empty.
	SBOM        bool
	ToolVersion string
}

// Reporter writes reports for a batch of scan results.
type Reporter struct {
	out    io.Writer
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a reporter writing to out.
func New(out io.Writer, opts Options, logger *slog.Logger) *Reporter {
	if opts.Type == "" {
		opts.Type = Basic
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{out: out, opts: opts, logger: logger, now: time.Now}
}

// Write renders every result. HTML reports always go to a file.
func (r *Reporter) Write(results []scan.Result) error {
	total := len(results)
	for i, res := range results {
		body, err := r.render(res, i, total)
		if err != nil {
			return fmt.Errorf("render %s report for %s: %w", r.opts.Type, res.Source, err)
		}

		location := r.opts.Location
		if location == "" && r.opts.Type == HTML {
			location = "."
		}
		if location != "" {
			path := Filename(location, res.Source, i, r.opts.Type.extension())
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			r.logger.Info("saved report", "path", path)
		} else {
			if _, err := fmt.Fprintf(r.out, "\nReport %d of %d\n", i+1, total); err != nil {
				return err
			}
			if _, err := r.out.Write(body); err != nil {
				return err
			}
		}

		if r.opts.SBOM {
			if err := r.writeSBOM(res, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reporter) render(res scan.Result, index, total int) ([]byte, error) {
	switch r.opts.Type {
	case Basic, Full:
		return []byte(renderText(res, r.opts.Type == Full, r.opts.Color)), nil
	case JSON:
		return renderJSON(res, r.now())
	case XML:
		return renderXML(res, r.now())
	case HTML:
		return renderHTML(res, index, total, r.now(), r.opts.ToolVersion)
	}
	return nil, fmt.Errorf("unknown report type %q", r.opts.Type)
}

func (r *Reporter) writeSBOM(res scan.Result, index int) error {
	dir := r.opts.Location
	if dir == "" {
		dir = "."
	}
	body, err := NewBOM(res.Set, r.opts.ToolVersion, r.now()).JSON()
	if err != nil {
		return fmt.Errorf("render sbom for %s: %w", res.Source, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%s_bom.json", index+1, baseName(res.Source)))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write sbom: %w", err)
	}
	r.logger.Info("saved sbom", "path", path)
	return nil
}

// Filename is where the report for the index-th result is written.
func Filename(location, source string, index int, ext string) string {
	return filepath.Join(location, fmt.Sprintf("%d_%s_results.%s", index+1, baseName(source), ext))
}

func baseName(source string) string {
	return strings.ToLower(filepath.Base(source))
}
