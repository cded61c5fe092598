package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Driver arrived", "Driver arrived"},
		{"script element", "a<script>alert(1)</script>b", "ab"},
		{"script spans lines", "a<SCRIPT type=\"x\">\nsteal()\n</script >b", "ab"},
		{"stray tag", "a<script src=//x>b", "ab"},
		{"js url", "go JavaScript :alert(1)", "go alert(1)"},
		{"inline handler", `<img onerror = "x">`, `<img  "x">`},
		{"word containing on", "done = true", "done = true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeString(tt.in))
		})
	}
}

func TestSanitize_Nested(t *testing.T) {
	in := map[string]any{
		"prototype": 1,
		"driver": map[string]any{
			"name":      "<script>x</script>Ann",
			"__proto__": map[string]any{"isAdmin": true},
			"rating":    4.8,
		},
		"tags": []any{"ok", "<script>y</script>", nil, true},
	}

	out := Sanitize(in).(map[string]any)
	assert.NotContains(t, out, "prototype")

	driver := out["driver"].(map[string]any)
	assert.Equal(t, "Ann", driver["name"])
	assert.Equal(t, 4.8, driver["rating"])
	assert.NotContains(t, driver, "__proto__")

	assert.Equal(t, []any{"ok", "", nil, true}, out["tags"])
}
