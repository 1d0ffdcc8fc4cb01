package manifest

import (
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"
)

// toxLoadOptions read tox.ini the way tox does: indented lines continue
// the previous value and '#' inside a value is not a comment.
var toxLoadOptions = ini.LoadOptions{
	AllowPythonMultilineValues: true,
	IgnoreInlineComment:        true,
	SkipUnrecognizableLines:    true,
	KeyValueDelimiters:         "=",
}

// factorPrefix matches tox factor conditions such as "py311: " or
// "!lint,docs:" in front of a dependency.
var factorPrefix = regexp.MustCompile(`^[A-Za-z0-9_!,\-]+:\s*`)

// ToxParser reads the deps option of every tox.ini section.
type ToxParser struct{}

func (ToxParser) Name() string    { return "tox" }
func (ToxParser) Pattern() string { return "**/tox.ini" }

func (ToxParser) Parse(path string, _ Options) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ini.LoadSources(toxLoadOptions, data)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	var out []string
	for _, section := range cfg.Sections() {
		if !section.HasKey("deps") {
			continue
		}
		for _, line := range strings.Split(section.Key("deps").String(), "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "", strings.HasPrefix(line, "{"), strings.HasPrefix(line, "#"):
				continue
			case strings.HasPrefix(line, "-r"):
				linked := strings.TrimSpace(strings.TrimPrefix(line, "-r"))
				linked = strings.ReplaceAll(linked, "{toxinidir}", filepath.Dir(path))
				if !filepath.IsAbs(linked) {
					linked = filepath.Join(filepath.Dir(path), linked)
				}
				deps, err := RequirementsParser{}.Parse(linked, Options{})
				if err != nil {
					return nil, err
				}
				out = append(out, deps...)
			default:
				if loc := factorPrefix.FindStringIndex(line); loc != nil && !strings.HasPrefix(line[loc[1]:], "//") {
					line = line[loc[1]:]
				}
				out = append(out, line)
			}
		}
	}
	return out, nil
}
