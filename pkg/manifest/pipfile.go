package manifest

import (
	"encoding/json"
	"sort"
)

// PipfileLockParser reads pipenv lock files.
type PipfileLockParser struct{}

func (PipfileLockParser) Name() string    { return "pipfile" }
func (PipfileLockParser) Pattern() string { return "**/*Pipfile.lock" }

type pipfileLock struct {
	Default map[string]pipfilePackage `json:"default"`
	Develop map[string]pipfilePackage `json:"develop"`
}

type pipfilePackage struct {
	Version string `json:"version"`
}

func (PipfileLockParser) Parse(path string, opts Options) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var lock pipfileLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	out := lockEntries(lock.Default)
	if opts.IncludeDev {
		out = append(out, lockEntries(lock.Develop)...)
	}
	return out, nil
}

// lockEntries renders name plus pinned version. Map order is not stable
// so names are sorted.
func lockEntries(pkgs map[string]pipfilePackage) []string {
	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, name+pkgs[name].Version)
	}
	return out
}
