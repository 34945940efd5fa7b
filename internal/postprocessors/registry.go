package postprocessors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from its settings block.
// Values come from Settings or decoded TOML, so numbers may be int, int64
// or float64.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds a builder under name, replacing any earlier one.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates the named processor. An unknown name is a configuration
// error listing the registered names.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q (options: %s)",
			domain.ErrConfiguration, name, strings.Join(r.Names(), ", "))
	}
	proc, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("processor %s: %w", name, err)
	}
	return proc, nil
}

// BuildChain builds the named processors in order into a pipeline.
// configs is keyed by processor name; a missing entry means defaults.
func (r *Registry) BuildChain(names []string, configs map[string]map[string]any) (*Pipeline, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty processor chain", domain.ErrConfiguration)
	}
	pipeline := NewPipeline()
	for _, name := range names {
		proc, err := r.Build(name, configs[name])
		if err != nil {
			return nil, err
		}
		pipeline.Add(proc)
	}
	return pipeline, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
