package kiln

import "strings"

// ToDeveloperName normalizes a human label into a developer name: lowercase,
// with every run of non-alphanumeric characters collapsed to a single
// underscore and leading/trailing underscores trimmed.
func ToDeveloperName(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	lastUnderscore := true
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
