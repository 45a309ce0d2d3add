// Package provider carries built-in identity provider presets. A preset is
// pure data plus a pure config transform: it contributes the provider's
// static endpoint set, its mandated minimum scopes, and a rewrite of
// provider-specific convenience fields into wire parameters. Presets compose
// with the flow engine instead of specializing it.
package provider

import (
	"fmt"
	"sort"

	"github.com/teemow/authflow/internal/flow"
)

// Preset describes one identity provider.
type Preset struct {
	// Name is the registry key (e.g. "google").
	Name string

	// Discovery is the provider's static endpoint set, used when the
	// caller skips live discovery.
	Discovery flow.DiscoveryDocument

	// RequiredScopes is the provider-mandated minimum scope set, merged
	// into the request's scopes.
	RequiredScopes []string

	// Transform rewrites provider-specific convenience fields into wire
	// parameters. It must be pure: same input config, same output.
	Transform func(flow.Config) flow.Config
}

// Apply folds the preset into a flow configuration.
func (p Preset) Apply(cfg flow.Config) flow.Config {
	cfg.RequiredScopes = append(cfg.RequiredScopes, p.RequiredScopes...)
	if p.Transform != nil {
		cfg = p.Transform(cfg)
	}
	return cfg
}

var registry = map[string]Preset{}

func register(p Preset) {
	registry[p.Name] = p
}

// Lookup returns the preset registered under name.
func Lookup(name string) (Preset, error) {
	p, ok := registry[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown provider %q (known: %v)", name, Names())
	}
	return p, nil
}

// Names lists the registered preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
