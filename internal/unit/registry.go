package unit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dusk-indust/govgen/internal/values"
)

// Registration is how a unit becomes known to the orchestrator. It is a
// closed set: BuiltIn and Plugin are the only implementations.
type Registration interface {
	Info() Info
	New(cfg values.Map) (Unit, error)
	sealed()
}

// Compile-time interface checks.
var (
	_ Registration = BuiltIn{}
	_ Registration = Plugin{}
)

// BuiltIn registers a unit compiled into the binary.
type BuiltIn struct {
	Meta    Info
	Factory func(cfg values.Map) Unit
}

// Info returns the unit's identity with Kind set to builtin.
func (b BuiltIn) Info() Info {
	info := b.Meta
	info.Kind = KindBuiltIn
	return info
}

// New constructs the unit for cfg.
func (b BuiltIn) New(cfg values.Map) (Unit, error) {
	if b.Factory == nil {
		return nil, fmt.Errorf("unit %s: no factory", b.Meta.ID)
	}
	return b.Factory(cfg), nil
}

func (BuiltIn) sealed() {}

// Plugin registers a unit described by a plugin manifest. When Factory is
// nil the declarative SchemaUnit renders the manifest's output templates.
type Plugin struct {
	Manifest Manifest
	Factory  func(m Manifest, cfg values.Map) Unit
}

// Info returns the identity declared by the manifest.
func (p Plugin) Info() Info {
	return p.Manifest.Info()
}

// New constructs the plugin unit for cfg.
func (p Plugin) New(cfg values.Map) (Unit, error) {
	if p.Factory == nil {
		return NewSchemaUnit(p.Manifest, cfg), nil
	}
	return p.Factory(p.Manifest, cfg), nil
}

func (Plugin) sealed() {}

// Registry maps unit ids to registrations. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	units map[string]Registration
	order []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]Registration)}
}

// Register adds reg. Plugin manifests are validated first. Registering an
// id twice replaces the earlier registration but keeps its position.
func (r *Registry) Register(reg Registration) error {
	if p, ok := reg.(Plugin); ok {
		if errs := ValidateManifest(p.Manifest); len(errs) > 0 {
			return fmt.Errorf("unit: register plugin %q: %w", p.Manifest.ID, &ManifestError{Errors: errs})
		}
	}
	id := reg.Info().ID
	if id == "" {
		return fmt.Errorf("unit: register: empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[id]; !exists {
		r.order = append(r.order, id)
	}
	r.units[id] = reg
	return nil
}

// Lookup returns the registration for id.
func (r *Registry) Lookup(id string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.units[id]
	return reg, ok
}

// New constructs the unit registered under id for cfg.
func (r *Registry) New(id string, cfg values.Map) (Unit, error) {
	reg, ok := r.Lookup(id)
	if !ok {
		return nil, &Error{UnitID: id, Kind: ErrUnknownUnit}
	}
	return reg.New(cfg)
}

// Infos returns every registration's Info in registration order.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.units[id].Info())
	}
	return out
}

// Enabled returns the Info for each id in ids that is registered, keeping
// the order of ids.
func (r *Registry) Enabled(ids []string) []Info {
	out := []Info{}
	for _, id := range ids {
		if reg, ok := r.Lookup(id); ok {
			out = append(out, reg.Info())
		}
	}
	return out
}

// ByModule returns the units declaring module id.
func (r *Registry) ByModule(id string) []Info {
	var out []Info
	for _, info := range r.Infos() {
		if info.SupportsModule(id) {
			out = append(out, info)
		}
	}
	return out
}

// ByLayer returns the units in layer. Units that declare no layer, which
// includes every built-in unit, are platform units.
func (r *Registry) ByLayer(layer string) []Info {
	var out []Info
	for _, info := range r.Infos() {
		l := info.Layer
		if l == "" {
			l = LayerPlatform
		}
		if l == layer {
			out = append(out, info)
		}
	}
	return out
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}
