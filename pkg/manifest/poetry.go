package manifest

import (
	"github.com/pelletier/go-toml/v2"
)

// PoetryLockParser reads poetry.lock files.
type PoetryLockParser struct{}

func (PoetryLockParser) Name() string    { return "poetry" }
func (PoetryLockParser) Pattern() string { return "**/*poetry.lock" }

type poetryLock struct {
	Package []struct {
		Name     string `toml:"name"`
		Version  string `toml:"version"`
		Category string `toml:"category"`
	} `toml:"package"`
}

func (PoetryLockParser) Parse(path string, opts Options) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var lock poetryLock
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	var out []string
	for _, pkg := range lock.Package {
		// Lock files from poetry 1.5 onwards drop the category key.
		if pkg.Category == "dev" && !opts.IncludeDev {
			continue
		}
		if pkg.Version == "" {
			out = append(out, pkg.Name)
			continue
		}
		out = append(out, pkg.Name+"=="+pkg.Version)
	}
	return out, nil
}
