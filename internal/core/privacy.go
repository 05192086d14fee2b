package core

import (
	"regexp"
	"strings"
)

// PrivateReplacement stands in for content wrapped in <private> tags.
const PrivateReplacement = "[PRIVATE]"

var privateTagPattern = regexp.MustCompile(`(?is)<private>.*?</private>`)

// StripPrivate replaces every <private>...</private> span with [PRIVATE].
func StripPrivate(text string) string {
	if text == "" {
		return ""
	}
	return privateTagPattern.ReplaceAllString(text, PrivateReplacement)
}

// ContainsPrivate reports whether text has at least one private span.
func ContainsPrivate(text string) bool {
	return privateTagPattern.MatchString(text)
}

// IsFullyPrivate reports whether nothing but private spans and whitespace
// would remain after stripping.
func IsFullyPrivate(text string) bool {
	stripped := strings.TrimSpace(StripPrivate(text))
	if stripped == "" {
		return true
	}
	rest := strings.ReplaceAll(stripped, PrivateReplacement, "")
	return strings.TrimSpace(rest) == ""
}

// StripPrivateJSON walks decoded JSON values and strips private spans from
// every string. Maps and slices are copied; other values are returned as is.
func StripPrivateJSON(v any) any {
	switch val := v.(type) {
	case string:
		return StripPrivate(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = StripPrivateJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = StripPrivateJSON(item)
		}
		return out
	default:
		return v
	}
}
