package unit

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/govgen/internal/template"
	"github.com/dusk-indust/govgen/internal/values"
)

var _ Unit = (*SchemaUnit)(nil)

// SchemaUnit is the unit behind a declarative plugin. It checks adapter
// settings against the manifest's config schema and renders the manifest's
// outputs with the template engine.
//
// Output templates see the resolved configuration plus three extra keys:
// adapter (the unit's settings with schema defaults applied), templates (the
// expanded module documents for the modules the plugin declares), and plugin
// (the manifest identity).
type SchemaUnit struct {
	*Base
	manifest Manifest
	engine   *template.Engine
	data     values.Map
}

// NewSchemaUnit returns the declarative unit for m serving cfg.
func NewSchemaUnit(m Manifest, cfg values.Map) *SchemaUnit {
	return &SchemaUnit{
		Base:     NewBase(m.Info(), cfg),
		manifest: m,
		engine:   template.New(),
	}
}

// Settings returns the adapter settings with schema defaults filled in.
func (u *SchemaUnit) Settings() values.Map {
	settings := u.AdapterConfig().Clone()
	if settings == nil {
		settings = values.Map{}
	}
	for key, f := range u.manifest.ConfigSchema {
		if _, ok := settings[key]; !ok && f.Default != nil {
			settings[key] = values.Normalize(f.Default)
		}
	}
	return settings
}

// Validate checks required fields and select options. Zero and false count
// as present values.
func (u *SchemaUnit) Validate() Validation {
	settings := u.Settings()
	keys := make([]string, 0, len(u.manifest.ConfigSchema))
	for k := range u.manifest.ConfigSchema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, key := range keys {
		f := u.manifest.ConfigSchema[key]
		label := f.Label
		if label == "" {
			label = key
		}
		v, present := settings[key]
		if !present || v == nil || v == "" {
			if f.Required {
				errs = append(errs, fmt.Sprintf("%s is required", label))
			}
			continue
		}
		if len(f.Options) > 0 && !contains(f.Options, fmt.Sprint(v)) {
			errs = append(errs, fmt.Sprintf("%s must be one of %v", label, f.Options))
		}
		switch f.Type {
		case "number":
			if _, ok := v.(float64); !ok {
				errs = append(errs, fmt.Sprintf("%s must be a number", label))
			}
		case "boolean":
			if _, ok := v.(bool); !ok {
				errs = append(errs, fmt.Sprintf("%s must be a boolean", label))
			}
		}
	}
	return Validations(errs)
}

// Transform renders the configs and docs outputs.
func (u *SchemaUnit) Transform(tpl Templates, cfg values.Map) (*Result, error) {
	u.data = u.renderData(tpl, cfg)
	res := &Result{Configs: []File{}, Docs: []File{}, Scripts: []File{}}
	for _, o := range u.manifest.Outputs {
		if o.Category == CategoryScripts {
			continue
		}
		f, err := u.render(o)
		if err != nil {
			return nil, err
		}
		if o.Category == CategoryConfigs {
			res.Configs = append(res.Configs, f)
		} else {
			res.Docs = append(res.Docs, f)
		}
	}
	return u.Record(res), nil
}

// GenerateScripts renders the scripts outputs.
func (u *SchemaUnit) GenerateScripts(*Result) ([]File, error) {
	if u.data == nil {
		u.data = u.renderData(nil, u.Config())
	}
	files := []File{}
	for _, o := range u.manifest.Outputs {
		if o.Category != CategoryScripts {
			continue
		}
		f, err := u.render(o)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return u.RecordScripts(files), nil
}

func (u *SchemaUnit) renderData(tpl Templates, cfg values.Map) values.Map {
	data := cfg.Clone()
	if data == nil {
		data = values.Map{}
	}
	data["adapter"] = map[string]any(u.Settings())
	data["templates"] = tpl.ForModules(u.manifest.Modules).AsValue()
	data["plugin"] = map[string]any{
		"id":      u.manifest.ID,
		"name":    u.manifest.Name,
		"version": u.manifest.Version,
		"layer":   u.manifest.Layer,
	}
	return data
}

func (u *SchemaUnit) render(o Output) (File, error) {
	content, err := u.engine.SafeExpand(o.Template, u.data)
	if err != nil {
		return File{}, fmt.Errorf("render %s/%s: %w", o.Category, o.Name, err)
	}
	name := u.engine.Expand(o.Name, u.data)
	return File{Name: name, Content: content, Type: fileType(name)}, nil
}

func fileType(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
