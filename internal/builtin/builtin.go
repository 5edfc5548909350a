// Package builtin provides the transformation units compiled into govgen:
// Microsoft Purview, Microsoft Fabric, and a generic REST/webhook unit.
package builtin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dusk-indust/govgen/internal/assets"
	"github.com/dusk-indust/govgen/internal/template"
	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

// Registrations returns the built-in unit registrations in their default
// order.
func Registrations() []unit.BuiltIn {
	return []unit.BuiltIn{
		{Meta: purviewInfo, Factory: func(cfg values.Map) unit.Unit { return NewPurview(cfg) }},
		{Meta: fabricInfo, Factory: func(cfg values.Map) unit.Unit { return NewFabric(cfg) }},
		{Meta: webhookInfo, Factory: func(cfg values.Map) unit.Unit { return NewWebhook(cfg) }},
	}
}

// Register adds every built-in unit to r.
func Register(r *unit.Registry) error {
	for _, reg := range Registrations() {
		if err := r.Register(reg); err != nil {
			return fmt.Errorf("builtin: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in units.
func NewRegistry() (*unit.Registry, error) {
	r := unit.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// timeLayout formats generatedAt stamps in unit outputs.
const timeLayout = time.RFC3339

// engine renders the embedded unit documents. Units never register filters,
// so one engine serves all of them.
var engine = template.New()

// renderAsset expands the embedded unit document name against data.
func renderAsset(name string, data any) (string, error) {
	doc, err := assets.UnitTemplate(name)
	if err != nil {
		return "", err
	}
	out, err := engine.SafeExpand(doc, values.FromAny(data))
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

// jsonFile marshals v as indented JSON.
func jsonFile(name string, v any) (unit.File, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return unit.File{}, fmt.Errorf("marshal %s: %w", name, err)
	}
	return unit.File{Name: name, Content: string(data), Type: "json"}, nil
}

var slugRe = regexp.MustCompile(`[\s/]+`)

// slug lower-cases s and joins its words with hyphens.
func slug(s string) string {
	return slugRe.ReplaceAllString(strings.ToLower(s), "-")
}

// stringOr returns the string at key in m, or def when it is absent or empty.
func stringOr(m values.Map, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

// boolOr returns the boolean at key in m, or def when it is absent.
func boolOr(m values.Map, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}

// numberOr returns the number at key in m, or def when it is absent or zero.
func numberOr(m values.Map, key string, def int) int {
	if f, ok := m[key].(float64); ok && f != 0 {
		return int(f)
	}
	return def
}

// entry is one key/value pair of a naming table.
type entry struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// orderedEntries returns the string pairs of the mapping at path sorted by
// key, or def when the mapping is absent or empty.
func orderedEntries(cfg values.Map, path string, def []entry) []entry {
	m := cfg.Sub(path)
	if len(m) == 0 {
		return def
	}
	out := make([]entry, 0, len(m))
	for _, k := range values.SortedKeys(m) {
		out = append(out, entry{Name: k, Code: fmt.Sprint(m[k])})
	}
	return out
}

// dateOf formats the date portion of t for document headers.
func dateOf(u interface{ Now() time.Time }) string {
	return u.Now().UTC().Format("2006-01-02")
}
