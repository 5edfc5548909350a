package template

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dusk-indust/govgen/internal/values"
)

// Comparison operators in the order they are tried. The first one present
// in an expression wins.
var operators = []string{"===", "!==", ">=", "<=", ">", "<", " includes "}

var (
	quotedRe  = regexp.MustCompile(`^["'](.*)["']$`)
	numericRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// EvaluateCondition evaluates a block condition against cfg.
//
// An expression containing && is true when every part is; otherwise one
// containing || is true when any part is. Parts are not nested. A part with
// a comparison operator compares its two operand tokens, and a bare token is
// tested for truthiness: absent values, empty strings and sequences, zero
// and false are falsy.
func (e *Engine) EvaluateCondition(expr string, cfg values.Map) bool {
	return evaluate(expr, rootScope(cfg).lookup)
}

func evaluate(expr string, resolve resolver) bool {
	expr = strings.TrimSpace(expr)
	if strings.Contains(expr, "&&") {
		for _, part := range strings.Split(expr, "&&") {
			if !evaluate(part, resolve) {
				return false
			}
		}
		return true
	}
	if strings.Contains(expr, "||") {
		for _, part := range strings.Split(expr, "||") {
			if evaluate(part, resolve) {
				return true
			}
		}
		return false
	}

	for _, op := range operators {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		left := operand(strings.TrimSpace(expr[:idx]), resolve)
		right := operand(strings.TrimSpace(expr[idx+len(op):]), resolve)
		switch strings.TrimSpace(op) {
		case "===":
			return looseString(left) == looseString(right)
		case "!==":
			return looseString(left) != looseString(right)
		case ">=":
			return toNumber(left) >= toNumber(right)
		case "<=":
			return toNumber(left) <= toNumber(right)
		case ">":
			return toNumber(left) > toNumber(right)
		case "<":
			return toNumber(left) < toNumber(right)
		case "includes":
			return includes(left, right)
		}
	}
	return truthy(operand(expr, resolve))
}

// operand resolves an expression token: a quoted literal, a numeric
// literal, true or false, or a dotted path. Unknown paths resolve to "".
func operand(token string, resolve resolver) any {
	if m := quotedRe.FindStringSubmatch(token); m != nil {
		return m[1]
	}
	if numericRe.MatchString(token) {
		f, _ := strconv.ParseFloat(token, 64)
		return f
	}
	switch token {
	case "true":
		return true
	case "false":
		return false
	}
	v, ok := resolve(token)
	if !ok {
		return ""
	}
	return v
}

// looseString renders a value for equality tests. Sequences join with a
// bare comma.
func looseString(v any) string {
	if s, ok := values.AsSlice(v); ok {
		parts := make([]string, len(s))
		for i, e := range s {
			parts[i] = looseString(e)
		}
		return strings.Join(parts, ",")
	}
	return render(v)
}

// toNumber converts a value for ordering tests. Values with no numeric
// reading become NaN, which compares false against everything.
func toNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func includes(haystack, needle any) bool {
	if s, ok := values.AsSlice(haystack); ok {
		for _, e := range s {
			if values.Equal(e, needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(looseString(haystack), looseString(needle))
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	}
	if s, ok := values.AsSlice(v); ok {
		return len(s) > 0
	}
	return true
}
