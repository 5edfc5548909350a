// Package resolver merges an industry baseline profile with client-level and
// artifact-level override layers into one resolved configuration, and
// reports how a resolved configuration differs from its baseline.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/k14s/difflib"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/govgen/internal/profile"
	"github.com/dusk-indust/govgen/internal/values"
)

// SchemaVersion is stamped into the metadata of every resolved configuration.
const SchemaVersion = "1.0.0"

// ErrUnknownProfile is returned when the catalog has no profile for an id.
var ErrUnknownProfile = errors.New("unknown profile")

// Catalog supplies baseline profiles by id.
type Catalog interface {
	Lookup(id string) (profile.Profile, bool)
}

var _ Catalog = (*profile.Registry)(nil)

// Resolver resolves configurations against a profile Catalog. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	catalog Catalog
}

// New returns a Resolver reading baselines from catalog.
func New(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Baseline returns the baseline layer for profileID: the profile's
// configuration-relevant subset plus an empty client name, an empty
// overrides bag, and fresh run metadata.
func (r *Resolver) Baseline(profileID string) (values.Map, error) {
	p, ok := r.catalog.Lookup(profileID)
	if !ok {
		return nil, fmt.Errorf("resolver: %w: %s", ErrUnknownProfile, profileID)
	}
	base := p.Config()
	base["clientName"] = ""
	base["overrides"] = map[string]any{}
	base["metadata"] = map[string]any{
		"createdAt":         nil,
		"updatedAt":         nil,
		"version":           SchemaVersion,
		"generationHistory": []any{},
	}
	return base, nil
}

// Resolve merges the baseline for profileID with the client override and
// then the artifact override. Either override may be nil. The result is a
// fresh document that shares no structure with any input.
func (r *Resolver) Resolve(profileID string, client, artifact values.Map) (values.Map, error) {
	base, err := r.Baseline(profileID)
	if err != nil {
		return nil, err
	}
	withClient := values.DeepMerge(base, values.FromAny(client))
	return values.DeepMerge(withClient, values.FromAny(artifact)), nil
}

// DeepMerge layers source over target. Mappings merge recursively and every
// other value, sequences included, is replaced outright.
func DeepMerge(target, source values.Map) values.Map {
	return values.DeepMerge(target, source)
}

// Delta returns the parts of resolved that differ from the baseline layer of
// profileID. Run metadata is bookkeeping rather than configuration and is
// never part of a delta.
func (r *Resolver) Delta(profileID string, resolved values.Map) (values.Map, error) {
	base, err := r.Baseline(profileID)
	if err != nil {
		return nil, err
	}
	current := values.FromAny(resolved)
	delete(base, "metadata")
	delete(current, "metadata")
	return values.Diff(base, current), nil
}

// DeltaPaths flattens a delta into its sorted dotted leaf paths.
func DeltaPaths(delta values.Map) []string {
	return values.Paths(delta)
}

// RenderDelta returns a line diff between the YAML rendering of the
// baseline for profileID and resolved, metadata excluded. Unchanged output
// means the configuration matches its baseline.
func (r *Resolver) RenderDelta(profileID string, resolved values.Map) (string, error) {
	base, err := r.Baseline(profileID)
	if err != nil {
		return "", err
	}
	current := values.FromAny(resolved)
	delete(base, "metadata")
	delete(current, "metadata")

	before, err := yaml.Marshal(map[string]any(base))
	if err != nil {
		return "", fmt.Errorf("resolver: render baseline: %w", err)
	}
	after, err := yaml.Marshal(map[string]any(current))
	if err != nil {
		return "", fmt.Errorf("resolver: render resolved: %w", err)
	}
	return difflib.PPDiff(splitLines(string(before)), splitLines(string(after))), nil
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
