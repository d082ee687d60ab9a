package expressions

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Interpolate substitutes {{identifier}} placeholders in the template using
// the given variables. Lookup is an exact string match on the identifier,
// with no dotted-path traversal. Unresolved placeholders are left verbatim in the
// output so a missing binding stays visible instead of silently vanishing.
func Interpolate(template string, vars map[string]any) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	var result strings.Builder
	result.Grow(len(template))

	i := 0
	for i < len(template) {
		idx := strings.Index(template[i:], "{{")
		if idx == -1 {
			result.WriteString(template[i:])
			break
		}

		// Write everything before the marker.
		result.WriteString(template[i : i+idx])
		start := i + idx + 2 // skip "{{"

		end := strings.Index(template[start:], "}}")
		if end == -1 {
			// Unclosed marker: emit the rest verbatim.
			result.WriteString(template[i+idx:])
			break
		}
		end += start

		name := strings.TrimSpace(template[start:end])

		val, ok := lookup(vars, name)
		if !ok {
			// Fail visibly: keep the original token.
			result.WriteString(template[i+idx : end+2])
		} else {
			result.WriteString(stringify(val))
		}

		i = end + 2 // skip "}}"
	}

	return result.String()
}

// InterpolateStrings applies Interpolate to every string value of the map,
// one level deep, returning a new map. Non-string values are copied as-is.
func InterpolateStrings(data, vars map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = Interpolate(s, vars)
		} else {
			out[k] = v
		}
	}
	return out
}

// HasPlaceholders reports whether the string contains any {{...}} tokens.
func HasPlaceholders(s string) bool {
	return strings.Contains(s, "{{")
}

func lookup(vars map[string]any, name string) (any, bool) {
	if vars == nil || name == "" {
		return nil, false
	}
	v, ok := vars[name]
	return v, ok
}

// stringify converts a resolved value into its inline string representation.
// Scalars render bare; complex types JSON-encode inline.
func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
