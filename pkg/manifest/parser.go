// Package manifest finds Python dependency files and reads the
// requirement strings they declare.
package manifest

import (
	"fmt"
	"os"
)

// Options tune how manifests are read.
type Options struct {
	// IncludeDev adds development-only dependencies where the format
	// distinguishes them.
	IncludeDev bool
}

// Parser reads one dependency file format.
type Parser interface {
	// Name identifies the format, e.g. "requirements".
	Name() string
	// Pattern is the discovery glob, matched against slash separated
	// paths rooted at "/".
	Pattern() string
	// Parse returns the requirement strings declared in path.
	Parse(path string, opts Options) ([]string, error)
}

// FileError reports a dependency file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("dependency file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return data, nil
}
