package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// CondaParser reads conda environment files. Only the pip section is
// used since conda packages are not published on PyPI.
type CondaParser struct{}

func (CondaParser) Name() string    { return "conda" }
func (CondaParser) Pattern() string { return "**/environment.yml" }

type condaEnvironment struct {
	Dependencies []yaml.Node `yaml:"dependencies"`
}

func (CondaParser) Parse(path string, _ Options) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var env condaEnvironment
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	var out []string
	for _, node := range env.Dependencies {
		if node.Kind != yaml.MappingNode {
			continue
		}
		var section map[string][]string
		if err := node.Decode(&section); err != nil {
			return nil, &FileError{Path: path, Err: fmt.Errorf("line %d: %w", node.Line, err)}
		}
		out = append(out, section["pip"]...)
	}
	return out, nil
}
