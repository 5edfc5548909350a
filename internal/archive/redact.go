package archive

import "strings"

// Mask replaces the value of every redacted key.
const Mask = "[REDACTED]"

var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"apikey",
	"authvalue",
	"authorization",
	"credential",
	"privatekey",
}

// Redact returns a copy of data with the values of secret-looking keys
// replaced by Mask. Keys are matched case-insensitively, ignoring '-' and
// '_', and nested mappings and sequences are walked.
func Redact(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if sensitive(k) {
			out[k] = Mask
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Redact(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}

func sensitive(key string) bool {
	k := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(key))
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
