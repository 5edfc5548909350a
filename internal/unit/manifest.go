package unit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// EngineVersion is the unit contract version plugins declare compatibility
// with through Manifest.Requires.
const EngineVersion = "1.0.0"

// Plugin layers.
const (
	LayerPlatform = "platform"
	LayerContext  = "context"
)

// Manifest file names searched in a plugin directory, in order.
var manifestFiles = []string{"plugin.hcl", "plugin.json", "plugin.yaml", "plugin.yml"}

// ErrIncompatiblePlugin is returned when a plugin's version constraint
// excludes EngineVersion.
var ErrIncompatiblePlugin = errors.New("incompatible plugin")

// ManifestError lists the structural problems found in a manifest.
type ManifestError struct {
	Errors []string
}

func (e *ManifestError) Error() string {
	return "invalid manifest: " + strings.Join(e.Errors, ", ")
}

// Field describes one adapter setting a plugin accepts under
// adapters.config.<plugin id>.
type Field struct {
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
}

// Output declares one file a plugin renders from a template document.
type Output struct {
	Category string `json:"category" yaml:"category"`
	Name     string `json:"name" yaml:"name"`
	Template string `json:"template" yaml:"template"`
}

// Manifest describes a plugin unit.
type Manifest struct {
	ID           string           `json:"id" yaml:"id"`
	Name         string           `json:"name" yaml:"name"`
	Version      string           `json:"version" yaml:"version"`
	Description  string           `json:"description,omitempty" yaml:"description,omitempty"`
	Author       string           `json:"author,omitempty" yaml:"author,omitempty"`
	Layer        string           `json:"layer" yaml:"layer"`
	Modules      []string         `json:"modules" yaml:"modules"`
	EntryPoint   string           `json:"entryPoint" yaml:"entryPoint"`
	Requires     string           `json:"requires,omitempty" yaml:"requires,omitempty"`
	ConfigSchema map[string]Field `json:"configSchema,omitempty" yaml:"configSchema,omitempty"`
	Outputs      []Output         `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Info returns the capability-discovery view of the manifest.
func (m Manifest) Info() Info {
	return Info{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Modules:     append([]string(nil), m.Modules...),
		Kind:        KindPlugin,
		Version:     m.Version,
		Layer:       m.Layer,
	}
}

// ValidateManifest returns the structural problems with m, or nil.
func ValidateManifest(m Manifest) []string {
	var errs []string
	if m.ID == "" {
		errs = append(errs, "missing id")
	}
	if m.Name == "" {
		errs = append(errs, "missing name")
	}
	if m.Version == "" {
		errs = append(errs, "missing version")
	}
	if m.EntryPoint == "" {
		errs = append(errs, "missing entryPoint")
	}
	if m.Layer != LayerPlatform && m.Layer != LayerContext {
		errs = append(errs, `layer must be "platform" or "context"`)
	}
	if m.Modules == nil {
		errs = append(errs, "modules must be a list")
	}
	for i, o := range m.Outputs {
		switch o.Category {
		case CategoryConfigs, CategoryDocs, CategoryScripts:
		default:
			errs = append(errs, fmt.Sprintf("output %d: unknown category %q", i+1, o.Category))
		}
		if o.Name == "" {
			errs = append(errs, fmt.Sprintf("output %d: missing name", i+1))
		}
	}
	return errs
}

// CheckCompatible reports ErrIncompatiblePlugin when m.Requires is set and
// does not admit EngineVersion.
func CheckCompatible(m Manifest) error {
	if m.Requires == "" {
		return nil
	}
	constraints, err := version.NewConstraint(m.Requires)
	if err != nil {
		return fmt.Errorf("plugin %s: requires %q: %w", m.ID, m.Requires, err)
	}
	engine := version.Must(version.NewVersion(EngineVersion))
	if !constraints.Check(engine) {
		return fmt.Errorf("plugin %s: %w: requires %s, engine is %s", m.ID, ErrIncompatiblePlugin, m.Requires, EngineVersion)
	}
	return nil
}

// hclManifest is the plugin.hcl layout:
//
//	plugin "unity-catalog" {
//	  name    = "Databricks Unity Catalog"
//	  version = "1.0.0"
//	  field "catalogName" { default = "main" }
//	  output "configs" "catalog.json" { template = "..." }
//	}
type hclManifest struct {
	Plugin hclPlugin `hcl:"plugin,block"`
}

type hclPlugin struct {
	ID          string       `hcl:"id,label"`
	Name        string       `hcl:"name,optional"`
	Version     string       `hcl:"version,optional"`
	Description string       `hcl:"description,optional"`
	Author      string       `hcl:"author,optional"`
	Layer       string       `hcl:"layer,optional"`
	Modules     []string     `hcl:"modules,optional"`
	EntryPoint  string       `hcl:"entry_point,optional"`
	Requires    string       `hcl:"requires,optional"`
	Fields      []*hclField  `hcl:"field,block"`
	Outputs     []*hclOutput `hcl:"output,block"`
}

type hclField struct {
	Key         string     `hcl:"key,label"`
	Type        string     `hcl:"type,optional"`
	Label       string     `hcl:"label,optional"`
	Description string     `hcl:"description,optional"`
	Required    bool       `hcl:"required,optional"`
	Options     []string   `hcl:"options,optional"`
	Default     *cty.Value `hcl:"default,optional"`
}

type hclOutput struct {
	Category string `hcl:"category,label"`
	Name     string `hcl:"name,label"`
	Template string `hcl:"template"`
}

// ParseManifest decodes a manifest. The format is taken from filename's
// extension: .hcl, .json, .yaml or .yml.
func ParseManifest(data []byte, filename string) (Manifest, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return parseHCLManifest(data, filename)
	case ".json":
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return Manifest{}, fmt.Errorf("parse %s: %w", filename, err)
		}
		return m, nil
	case ".yaml", ".yml":
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Manifest{}, fmt.Errorf("parse %s: %w", filename, err)
		}
		return m, nil
	default:
		return Manifest{}, fmt.Errorf("parse %s: unsupported manifest format", filename)
	}
}

func parseHCLManifest(data []byte, filename string) (Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return Manifest{}, fmt.Errorf("parse %s: %w", filename, diags)
	}
	var doc hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return Manifest{}, fmt.Errorf("decode %s: %w", filename, diags)
	}

	p := doc.Plugin
	m := Manifest{
		ID:          p.ID,
		Name:        p.Name,
		Version:     p.Version,
		Description: p.Description,
		Author:      p.Author,
		Layer:       p.Layer,
		Modules:     p.Modules,
		EntryPoint:  p.EntryPoint,
		Requires:    p.Requires,
	}
	if m.Modules == nil {
		m.Modules = []string{}
	}
	if len(p.Fields) > 0 {
		m.ConfigSchema = make(map[string]Field, len(p.Fields))
	}
	for _, f := range p.Fields {
		field := Field{
			Type:        f.Type,
			Label:       f.Label,
			Description: f.Description,
			Required:    f.Required,
			Options:     f.Options,
		}
		if f.Default != nil {
			def, err := ctyToNative(*f.Default)
			if err != nil {
				return Manifest{}, fmt.Errorf("decode %s: field %s default: %w", filename, f.Key, err)
			}
			field.Default = def
		}
		m.ConfigSchema[f.Key] = field
	}
	for _, o := range p.Outputs {
		m.Outputs = append(m.Outputs, Output{Category: o.Category, Name: o.Name, Template: o.Template})
	}
	return m, nil
}

// ctyToNative converts a decoded HCL value to plain Go values.
func ctyToNative(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := []any{}
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// LoadManifest reads the manifest from a plugin directory, trying
// plugin.hcl, plugin.json and plugin.yaml in that order.
func LoadManifest(dir string) (Manifest, error) {
	for _, name := range manifestFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Manifest{}, fmt.Errorf("unit: read manifest: %w", err)
		}
		m, err := ParseManifest(data, path)
		if err != nil {
			return Manifest{}, fmt.Errorf("unit: %w", err)
		}
		return m, nil
	}
	return Manifest{}, fmt.Errorf("unit: no plugin manifest in %s", dir)
}

// LoadPlugins registers a declarative plugin for every subdirectory of dir
// holding a manifest. Directories without a manifest are skipped; invalid
// or incompatible manifests fail the load.
func (r *Registry) LoadPlugins(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unit: read plugin dir: %w", err)
	}
	var loaded []Manifest
	for _, e := range entries {
		if !e.IsDir() || !hasManifest(filepath.Join(dir, e.Name())) {
			continue
		}
		m, err := LoadManifest(filepath.Join(dir, e.Name()))
		if err != nil {
			return loaded, err
		}
		if err := CheckCompatible(m); err != nil {
			return loaded, fmt.Errorf("unit: %w", err)
		}
		if err := r.Register(Plugin{Manifest: m}); err != nil {
			return loaded, err
		}
		loaded = append(loaded, m)
	}
	return loaded, nil
}

func hasManifest(dir string) bool {
	for _, name := range manifestFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
