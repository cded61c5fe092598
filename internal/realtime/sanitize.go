package realtime

import "regexp"

var (
	scriptElement = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptTag     = regexp.MustCompile(`(?i)</?script\b[^>]*>`)
	jsScheme      = regexp.MustCompile(`(?i)javascript\s*:`)
	inlineHandler = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
)

var pollutingKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// SanitizeString removes script elements, javascript: URLs and inline event
// handler attributes.
func SanitizeString(s string) string {
	s = scriptElement.ReplaceAllString(s, "")
	s = scriptTag.ReplaceAllString(s, "")
	s = jsScheme.ReplaceAllString(s, "")
	s = inlineHandler.ReplaceAllString(s, "")
	return s
}

// Sanitize walks a decoded JSON value, cleaning every string and dropping
// prototype-polluting keys at any depth.
func Sanitize(v any) any {
	switch t := v.(type) {
	case string:
		return SanitizeString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if _, bad := pollutingKeys[k]; bad {
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	default:
		return v
	}
}
