package manifest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gobwas/glob"
)

type entry struct {
	parser Parser
	glob   glob.Glob
}

// Registry holds the known parsers keyed by name.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]entry
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]entry)}
}

// DefaultRegistry returns a registry with every supported format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []Parser{
		RequirementsParser{name: "requirements", pattern: "**/*requirements*.txt"},
		RequirementsParser{name: "constraints", pattern: "**/*constraints*.txt"},
		PipfileLockParser{},
		PoetryLockParser{},
		CondaParser{},
		ToxParser{},
	} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a parser. Returns an error if the name is taken or the
// pattern does not compile.
func (r *Registry) Register(p Parser) error {
	g, err := glob.Compile(p.Pattern(), '/')
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", p.Pattern(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parsers[p.Name()]; exists {
		return fmt.Errorf("parser already registered: %s", p.Name())
	}
	r.parsers[p.Name()] = entry{parser: p, glob: g}
	return nil
}

// Resolve looks up a parser by name.
func (r *Registry) Resolve(name string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("parser not found: %s", name)
	}
	return e.parser, nil
}

// Names returns the registered parser names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match returns the parser whose pattern matches a slash separated path
// rooted at "/". Names are tried in sorted order so the result is stable.
func (r *Registry) Match(path string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if e := r.parsers[name]; e.glob.Match(path) {
			return e.parser, true
		}
	}
	return nil, false
}
