// Package values models configuration documents as plain Go trees of
// map[string]any, []any, string, float64, bool and nil. Every other package
// reads and writes configuration through these helpers so that documents
// decoded from JSON, YAML, or TOML compare and merge identically.
package values

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Map is a configuration document or a fragment of one.
type Map map[string]any

// AsMap reports whether v is a mapping and returns it as a Map.
func AsMap(v any) (Map, bool) {
	switch t := v.(type) {
	case Map:
		return t, t != nil
	case map[string]any:
		return Map(t), t != nil
	default:
		return nil, false
	}
}

// AsSlice reports whether v is a sequence and returns it as []any.
func AsSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []Map:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = map[string]any(m)
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// Normalize converts decoder output (yaml.v3, TOML, structs) into the
// canonical tree shape: every integer becomes float64, nested maps become
// map[string]any and typed slices become []any. The input is not modified.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Map:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case []string, []Map, []map[string]any:
		s, _ := AsSlice(t)
		return Normalize(s)
	case string, bool, float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Sprint(t)
		}
		return out
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

// FromAny normalizes v and returns it as a Map. Non-mapping input yields an
// empty Map.
func FromAny(v any) Map {
	m, ok := AsMap(Normalize(v))
	if !ok {
		return Map{}
	}
	return m
}

// Clone returns a deep copy of v. Mappings and sequences are copied; scalars
// are shared since they are immutable.
func Clone(v any) any {
	switch t := v.(type) {
	case Map:
		return map[string]any(t.Clone())
	case map[string]any:
		return map[string]any(Map(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	case []string, []Map, []map[string]any:
		s, _ := AsSlice(t)
		return Clone(s)
	default:
		return t
	}
}

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// DeepMerge returns a new document with source layered over target. When
// both sides hold a mapping at the same key the mappings merge recursively;
// in every other case the source value replaces the target value, which
// means sequences are replaced whole rather than concatenated. Neither input
// is modified and the result shares no mutable structure with them.
func DeepMerge(target, source Map) Map {
	out := target.Clone()
	if out == nil {
		out = Map{}
	}
	for k, sv := range source {
		sm, sok := AsMap(sv)
		tm, tok := AsMap(out[k])
		if sok && tok {
			out[k] = map[string]any(DeepMerge(tm, sm))
			continue
		}
		out[k] = Clone(sv)
	}
	return out
}

// Lookup resolves a dotted path such as "naming.orgPrefix". Numeric
// segments index into sequences. The second result is false when any
// segment is missing.
func (m Map) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		if mm, ok := AsMap(cur); ok {
			v, found := mm[seg]
			if !found {
				return nil, false
			}
			cur = v
			continue
		}
		if s, ok := AsSlice(cur); ok {
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(s) {
				return nil, false
			}
			cur = s[i]
			continue
		}
		return nil, false
	}
	return cur, true
}

// Get is Lookup without the presence flag.
func (m Map) Get(path string) any {
	v, _ := m.Lookup(path)
	return v
}

// String returns the value at path when it is a string, and "" otherwise.
func (m Map) String(path string) string {
	s, _ := m.Get(path).(string)
	return s
}

// Strings returns the sequence at path with non-string elements formatted.
func (m Map) Strings(path string) []string {
	s, ok := AsSlice(m.Get(path))
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s))
	for _, v := range s {
		if str, ok := v.(string); ok {
			out = append(out, str)
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// Sub returns the mapping at path, or an empty Map when absent.
func (m Map) Sub(path string) Map {
	sub, ok := AsMap(m.Get(path))
	if !ok {
		return Map{}
	}
	return sub
}

// Set writes v at a dotted path, creating intermediate mappings and
// replacing non-mapping intermediates.
func (m Map) Set(path string, v any) {
	segs := strings.Split(path, ".")
	cur := m
	for _, seg := range segs[:len(segs)-1] {
		next, ok := AsMap(cur[seg])
		if !ok {
			next = Map{}
			cur[seg] = map[string]any(next)
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = Normalize(v)
}

// Delete removes the value at a dotted path. It reports whether anything
// was removed.
func (m Map) Delete(path string) bool {
	segs := strings.Split(path, ".")
	cur := m
	for _, seg := range segs[:len(segs)-1] {
		next, ok := AsMap(cur[seg])
		if !ok {
			return false
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

// Equal reports whether a and b hold the same value after normalization.
func Equal(a, b any) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// Diff returns the keys of current whose values differ from base. Mappings
// present on both sides are compared recursively and only their differing
// keys are kept; every other value is compared whole. Keys present only in
// base are not reported.
func Diff(base, current Map) Map {
	out := Map{}
	for k, cv := range current {
		bv, found := base[k]
		if !found {
			out[k] = Clone(cv)
			continue
		}
		cm, cok := AsMap(cv)
		bm, bok := AsMap(bv)
		if cok && bok {
			if sub := Diff(bm, cm); len(sub) > 0 {
				out[k] = map[string]any(sub)
			}
			continue
		}
		if !Equal(bv, cv) {
			out[k] = Clone(cv)
		}
	}
	return out
}

// Paths flattens m into sorted dotted leaf paths. Empty mappings count as
// leaves.
func Paths(m Map) []string {
	var out []string
	var walk func(prefix string, mm Map)
	walk = func(prefix string, mm Map) {
		for k, v := range mm {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			if sub, ok := AsMap(v); ok && len(sub) > 0 {
				walk(p, sub)
				continue
			}
			out = append(out, p)
		}
	}
	walk("", m)
	sort.Strings(out)
	return out
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Compact returns a copy of m with nil values removed at every depth. TOML
// has no null so documents are compacted before encoding.
func Compact(m Map) Map {
	out := make(Map, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = compactValue(v)
	}
	return out
}

func compactValue(v any) any {
	if mm, ok := AsMap(v); ok {
		return map[string]any(Compact(mm))
	}
	if s, ok := AsSlice(v); ok {
		out := make([]any, 0, len(s))
		for _, e := range s {
			if e == nil {
				continue
			}
			out = append(out, compactValue(e))
		}
		return out
	}
	return v
}
