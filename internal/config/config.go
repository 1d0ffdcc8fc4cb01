// Package config loads depsentry settings from .depsentry.yml, the
// environment and command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cgast/depsentry/pkg/policy"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = ".depsentry.yml"

// Config represents the runtime configuration.
type Config struct {
	Debug          bool         `yaml:"debug"`
	Silent         bool         `yaml:"silent"`
	Dir            string       `yaml:"dir"`
	ExcludeDirs    StringList   `yaml:"exclude_dir"`
	File           string       `yaml:"file"`
	ReportType     string       `yaml:"report_type"`
	ReportLocation string       `yaml:"report_location"`
	Exit           bool         `yaml:"exit"`
	Ignore         StringList   `yaml:"ignore"`
	IncludeDev     bool         `yaml:"include_dev"`
	ColorOutput    bool         `yaml:"color_output"`
	SBOM           bool         `yaml:"enable_sbom"`
	Workers        int          `yaml:"workers"`
	Policies       []PolicySpec `yaml:"policies"`
	Cache          CacheConfig  `yaml:"cache"`
	VulnDB         VulnDBConfig `yaml:"vulndb"`
	Server         ServerConfig `yaml:"server"`
}

// CacheConfig controls the on-disk response cache and DB location.
type CacheConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

// VulnDBConfig locates the vulnerability database releases.
type VulnDBConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Token string `yaml:"token"`
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReportType:  "BASIC",
		ColorOutput: true,
		Workers:     4,
		ExcludeDirs: StringList{".git", "node_modules", ".venv", "venv", ".tox"},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		VulnDB: VulnDBConfig{
			Owner: "ochronasec",
			Repo:  "ochrona_python_vulnerabilities",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// LoadConfig reads and parses a config YAML file over the defaults.
// ${VAR} references are replaced from the environment first. Returns the
// default config if the file doesn't exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	interpolated := interpolateEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// CacheDir returns the configured cache directory, defaulting to the
// user cache directory.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, "depsentry"), nil
}

// BuildPolicies turns the configured policy entries into evaluators.
func (c Config) BuildPolicies() ([]policy.Policy, error) {
	out := make([]policy.Policy, 0, len(c.Policies))
	for i, spec := range c.Policies {
		p, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("policies[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// StringList accepts either a YAML sequence or a comma separated scalar.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = SplitList(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a list or comma separated string", node.Line)
}

// SplitList splits a comma separated string, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PolicySpec is one entry of the policies list: either an expression
// string or a structured allow/deny mapping.
type PolicySpec struct {
	Expression string
	Type       string
	AllowList  StringList
	DenyList   StringList
	// Unknown holds mapping keys outside the structured schema.
	Unknown []string
}

func (p *PolicySpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = PolicySpec{Expression: node.Value}
		return nil
	case yaml.MappingNode:
		spec := PolicySpec{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i].Value, node.Content[i+1]
			var err error
			switch key {
			case "policy_type":
				err = value.Decode(&spec.Type)
			case "allow_list":
				err = value.Decode(&spec.AllowList)
			case "deny_list":
				err = value.Decode(&spec.DenyList)
			default:
				spec.Unknown = append(spec.Unknown, key)
			}
			if err != nil {
				return fmt.Errorf("policy %s: %w", key, err)
			}
		}
		*p = spec
		return nil
	}
	return fmt.Errorf("line %d: policies entries must be objects or strings", node.Line)
}

// IsExpression reports whether the entry is an expression policy.
func (p PolicySpec) IsExpression() bool {
	return p.Type == "" && p.Expression != ""
}

// Build validates the entry and returns its evaluator.
func (p PolicySpec) Build() (policy.Policy, error) {
	if p.IsExpression() {
		if err := policy.Validate(p.Expression); err != nil {
			return nil, err
		}
		return policy.NewExpression(p.Expression)
	}
	return policy.NewLegacy(p.Type, strings.Join(p.AllowList, ","), strings.Join(p.DenyList, ","))
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match // Leave unresolved if not set.
	})
}
