// Package template implements the document expansion language used for
// standards templates: {{path}} substitution with filters, {{#if}} and
// {{#unless}} conditionals, and {{#each}} loops.
//
// Expansion runs three passes over the whole document in a fixed order:
// loops, then conditionals, then substitution. Missing data never fails an
// expansion; it renders as empty text. Malformed markup, such as an opening
// block without its close, is left in the output verbatim. Substituted
// values are never parsed as markup, including values rendered inside a
// loop body before the later passes run.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/dusk-indust/govgen/internal/values"
)

// ErrExpansionFailed is returned by SafeExpand when a filter panics.
var ErrExpansionFailed = errors.New("template expansion failed")

// Filter transforms the rendered text of a placeholder.
type Filter func(string) string

var (
	kebabRe = regexp.MustCompile(`[\s_]+`)
	snakeRe = regexp.MustCompile(`[\s-]+`)
)

func defaultFilters() map[string]Filter {
	return map[string]Filter{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": titleCase,
		"kebab": func(s string) string { return strings.ToLower(kebabRe.ReplaceAllString(s, "-")) },
		"snake": func(s string) string { return strings.ToLower(snakeRe.ReplaceAllString(s, "_")) },
		"trim":  strings.TrimSpace,
	}
}

// titleCase upper-cases the first word character after every non-word
// character, where word characters are ASCII letters, digits and underscore.
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevWord := false
	for _, r := range s {
		w := isWordRune(r)
		if w && !prevWord {
			r = unicode.ToUpper(r)
		}
		prevWord = w
		sb.WriteRune(r)
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Engine expands template documents. The filter table is the only state;
// expansion itself is pure, so one Engine may be shared across goroutines.
type Engine struct {
	mu      sync.RWMutex
	filters map[string]Filter
}

// New returns an Engine with the default filters: upper, lower, title,
// kebab, snake and trim.
func New() *Engine {
	return &Engine{filters: defaultFilters()}
}

// RegisterFilter adds or replaces a named filter.
func (e *Engine) RegisterFilter(name string, fn Filter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = fn
}

func (e *Engine) filter(name string) (Filter, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.filters[name]
	return f, ok
}

// Braces in substituted values are stored as escMark sequences until
// expansion finishes, so later passes cannot scan them as markup.
const escMark = "\uE000"

var (
	escapeDoc   = strings.NewReplacer(escMark, escMark+"1")
	escapeValue = strings.NewReplacer(escMark, escMark+"1", "{", escMark+"0", "}", escMark+"2")
	unescape    = strings.NewReplacer(escMark+"0", "{", escMark+"1", escMark, escMark+"2", "}")
)

// Expand renders doc against cfg.
func (e *Engine) Expand(doc string, cfg values.Map) string {
	root := rootScope(cfg)
	out := e.expandLoops(escapeDoc.Replace(doc), root)
	out = e.expandConditionals(out, root.lookup)
	return unescape.Replace(e.substitute(out, root.lookup, false))
}

// SafeExpand is Expand with panics from registered filters converted to an
// error wrapping ErrExpansionFailed.
func (e *Engine) SafeExpand(doc string, cfg values.Map) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExpansionFailed, r)
		}
	}()
	return e.Expand(doc, cfg), nil
}

// resolver looks up a path in the current scope.
type resolver func(path string) (any, bool)

// scope is the lookup chain for one loop iteration. The root scope has no
// item and resolves against the configuration.
type scope struct {
	cfg    values.Map
	parent *scope
	item   any
	index  int
	count  int
	inLoop bool
}

func rootScope(cfg values.Map) *scope {
	return &scope{cfg: cfg}
}

// local resolves the names owned by this iteration: ".", the @ references,
// and fields of a composite item.
func (s *scope) local(path string) (any, bool) {
	if !s.inLoop {
		return nil, false
	}
	switch path {
	case ".":
		return s.item, true
	case "@index":
		return float64(s.index), true
	case "@first":
		return s.index == 0, true
	case "@last":
		return s.index == s.count-1, true
	}
	m, ok := values.AsMap(s.item)
	if !ok {
		return nil, false
	}
	head, _, _ := strings.Cut(path, ".")
	if _, found := m[head]; !found {
		return nil, false
	}
	return m.Lookup(path)
}

// lookup resolves path through this iteration, then enclosing iterations,
// then the configuration.
func (s *scope) lookup(path string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.local(path); ok {
			return v, true
		}
		if cur.parent == nil {
			return cur.cfg.Lookup(path)
		}
	}
	return nil, false
}

func (e *Engine) expandLoops(doc string, sc *scope) string {
	blocks := pairBlocks(scanTags(doc), map[string]bool{"each": true}, false)
	return replaceBlocks(doc, blocks, func(b block) string {
		v, _ := sc.lookup(b.open.arg)
		items, ok := values.AsSlice(v)
		if !ok {
			return ""
		}
		body := b.body(doc)
		var sb strings.Builder
		for i, item := range items {
			iter := &scope{cfg: sc.cfg, parent: sc, item: item, index: i, count: len(items), inLoop: true}
			rendered := e.expandLoops(body, iter)
			rendered = e.expandConditionals(rendered, iter.lookup)
			sb.WriteString(e.substitute(rendered, iter.local, true))
		}
		return sb.String()
	})
}

func (e *Engine) expandConditionals(doc string, resolve resolver) string {
	blocks := pairBlocks(scanTags(doc), map[string]bool{"if": true, "unless": true}, true)
	return replaceBlocks(doc, blocks, func(b block) string {
		yes, no := b.branches(doc)
		cond := evaluate(b.open.arg, resolve)
		if b.open.block == "unless" {
			cond = !cond
		}
		if cond {
			return e.expandConditionals(yes, resolve)
		}
		return e.expandConditionals(no, resolve)
	})
}

// substitute replaces placeholders with their rendered values. With
// keepUnresolved set, placeholders the resolver does not know are left for
// a later pass; otherwise they render as empty text. @ references are only
// substituted when the resolver knows them.
func (e *Engine) substitute(doc string, resolve resolver, keepUnresolved bool) string {
	tags := scanTags(doc)
	var sb strings.Builder
	sb.Grow(len(doc))
	last := 0
	for _, t := range tags {
		if t.kind != tagPlaceholder {
			continue
		}
		parts := strings.Split(t.arg, "|")
		path := strings.TrimSpace(parts[0])
		v, ok := resolve(path)
		if !ok && (keepUnresolved || strings.HasPrefix(path, "@")) {
			continue
		}
		text := render(v)
		for _, name := range parts[1:] {
			if f, found := e.filter(strings.TrimSpace(name)); found {
				text = f(text)
			}
		}
		sb.WriteString(doc[last:t.start])
		sb.WriteString(escapeValue.Replace(text))
		last = t.end
	}
	sb.WriteString(doc[last:])
	return sb.String()
}

// render formats a value for substitution. Sequences are joined with ", ";
// mappings render as compact JSON.
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	if s, ok := values.AsSlice(v); ok {
		parts := make([]string, len(s))
		for i, e := range s {
			parts[i] = render(e)
		}
		return strings.Join(parts, ", ")
	}
	if m, ok := values.AsMap(v); ok {
		data, err := json.Marshal(map[string]any(m))
		if err == nil {
			return string(data)
		}
	}
	return render(values.Normalize(v))
}

// ExtractPlaceholders returns the distinct paths referenced by bare
// placeholders in doc, in order of first appearance. Block markers, else,
// "." and @ references are excluded.
func ExtractPlaceholders(doc string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, t := range scanTags(doc) {
		if t.kind != tagPlaceholder {
			continue
		}
		path, _, _ := strings.Cut(t.arg, "|")
		path = strings.TrimSpace(path)
		if path == "" || path == "." || strings.HasPrefix(path, "@") || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths
}

// Validation reports placeholders whose paths have no usable value.
type Validation struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

// Validate reports every placeholder path in doc that is absent from cfg or
// resolves to nil or an empty string.
func (e *Engine) Validate(doc string, cfg values.Map) Validation {
	missing := []string{}
	for _, path := range ExtractPlaceholders(doc) {
		v, ok := cfg.Lookup(path)
		if !ok || v == nil || v == "" {
			missing = append(missing, path)
		}
	}
	return Validation{Valid: len(missing) == 0, Missing: missing}
}
