package manifest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// File is a discovered dependency file and the parser that reads it.
type File struct {
	Path   string
	Parser Parser
}

// Discover walks root and returns every file a registered parser claims.
// Directories whose name or root-relative path matches an exclude glob
// are not entered.
func Discover(root string, excludes []string, reg *Registry) ([]File, error) {
	skip := make([]glob.Glob, 0, len(excludes))
	for _, pattern := range excludes {
		g, err := glob.Compile(strings.Trim(filepath.ToSlash(pattern), "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude %q: %w", pattern, err)
		}
		skip = append(skip, g)
	}

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && excluded(skip, d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if p, ok := reg.Match("/" + rel); ok {
			files = append(files, File{Path: path, Parser: p})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func excluded(skip []glob.Glob, name, rel string) bool {
	for _, g := range skip {
		if g.Match(name) || g.Match(rel) {
			return true
		}
	}
	return false
}
