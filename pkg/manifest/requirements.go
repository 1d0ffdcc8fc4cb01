package manifest

import (
	"strings"
)

// skipPrefixes are pip options that never name a dependency.
var skipPrefixes = []string{
	"#", "-i", "-f", "-Z", "-e",
	"--index-url", "--extra-index-url", "--find-links", "--no-index",
	"--allow-external", "--allow-unverified", "--always-unzip", "--hash",
	"--editable",
}

// RequirementsParser reads pip requirements and constraints files.
type RequirementsParser struct {
	name    string
	pattern string
}

func (p RequirementsParser) Name() string    { return p.name }
func (p RequirementsParser) Pattern() string { return p.pattern }

func (p RequirementsParser) Parse(path string, _ Options) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRequirementsText(string(data)), nil
}

// ParseRequirementsText extracts requirement strings from the text of a
// requirements file. It also serves input piped in on stdin.
func ParseRequirementsText(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || skipped(line) {
			continue
		}
		if dep := cleanRequirement(line); dep != "" {
			out = append(out, dep)
		}
	}
	return out
}

func skipped(line string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// cleanRequirement drops environment markers, trailing comments and
// per-line options. A "-r" include keeps its target so it is recognised
// as a reference later.
func cleanRequirement(line string) string {
	if strings.HasPrefix(line, "-r") {
		return line
	}
	if strings.ContainsAny(line, " ;#") {
		line = strings.Fields(line)[0]
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
	}
	return strings.TrimSpace(line)
}
