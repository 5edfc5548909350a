// Package assets embeds the built-in industry profiles, module templates,
// and unit document templates distributed inside the govgen binary.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// ProfilesFS holds one YAML document per built-in industry profile.
//
//go:embed profiles/*.yaml
var ProfilesFS embed.FS

// ModulesFS holds the template sources for each standards module, laid out
// as modules/<module-id>/<template-name>.
//
//go:embed modules
var ModulesFS embed.FS

// UnitsFS holds document templates rendered by the built-in units.
//
//go:embed units/*
var UnitsFS embed.FS

// ModuleSources loads template sources for the given module ids from fsys,
// which must be laid out as <module-id>/<template-name>. Template names are
// file names without their extension. Modules without a directory are
// skipped. An empty ids slice loads every module present.
func ModuleSources(fsys fs.FS, ids []string) (map[string]map[string]string, error) {
	if len(ids) == 0 {
		entries, err := fs.ReadDir(fsys, ".")
		if err != nil {
			return nil, fmt.Errorf("assets: list modules: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				ids = append(ids, e.Name())
			}
		}
		sort.Strings(ids)
	}

	sources := make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		entries, err := fs.ReadDir(fsys, id)
		if err != nil {
			continue
		}
		templates := make(map[string]string, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := fs.ReadFile(fsys, path.Join(id, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("assets: read %s/%s: %w", id, e.Name(), err)
			}
			name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
			templates[name] = string(data)
		}
		sources[id] = templates
	}
	return sources, nil
}

// BuiltinModules returns the embedded module template sources for ids.
func BuiltinModules(ids []string) (map[string]map[string]string, error) {
	sub, err := fs.Sub(ModulesFS, "modules")
	if err != nil {
		return nil, fmt.Errorf("assets: modules: %w", err)
	}
	return ModuleSources(sub, ids)
}

// UnitTemplate returns the embedded document template with the given file
// name.
func UnitTemplate(name string) (string, error) {
	data, err := UnitsFS.ReadFile(path.Join("units", name))
	if err != nil {
		return "", fmt.Errorf("assets: unit template %s: %w", name, err)
	}
	return string(data), nil
}
