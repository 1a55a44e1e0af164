// Package workshop holds the built-in chart presets of the workshop
// clusters: the mutators each chart needs on top of its plain rendering.
package workshop

import (
	"fmt"
	"slices"
	"sync"

	"github.com/lburgazzoli/kpipe/pkg/mutator"
)

const (
	// Namespace is where the workshop infrastructure runs.
	Namespace = "workshopctl"

	// Secret holds the credentials shared by the workshop infrastructure.
	Secret = "workshopctl"
)

// Preset groups the mutators of one chart.
type Preset struct {
	Name string

	// Namespace, when set, is applied to every document after Mutators.
	Namespace string

	Mutators       []mutator.Mutator
	ValuesMutators []mutator.ValuesMutator
}

// KubeMutators returns Mutators followed by the namespace mutator, if any.
func (p Preset) KubeMutators() []mutator.Mutator {
	result := slices.Clone(p.Mutators)
	if p.Namespace != "" {
		result = append(result, mutator.WithNamespace(p.Namespace))
	}

	return result
}

var (
	mu      sync.RWMutex
	presets = map[string]Preset{}
)

// Register adds p to the registry, replacing any preset with the same name.
func Register(p Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}

	mu.Lock()
	defer mu.Unlock()

	presets[p.Name] = p

	return nil
}

// Get returns the preset called name.
func Get(name string) (Preset, bool) {
	mu.RLock()
	defer mu.RUnlock()

	p, ok := presets[name]

	return p, ok
}

// Lookup returns the preset called name, or an empty preset with that name
// when none is registered; charts without a preset are rendered as they are.
func Lookup(name string) Preset {
	if p, ok := Get(name); ok {
		return p
	}

	return Preset{Name: name}
}

// Names returns the registered preset names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
