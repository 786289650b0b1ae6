// Package objectkey derives storage object keys from media identities and
// original filenames.
package objectkey

import (
	"path/filepath"
	"strings"
)

// FromIDAndFileName builds the object key for one media item:
// `{id}_{sanitizedStem}{extension}`. The stem is lower-cased with every run
// of characters unsafe for a storage namespace collapsed to a hyphen; the
// extension keeps its original spelling, case included. Keys are
// deterministic per (id, fileName) and collision-free across distinct ids
// even when filenames collide.
func FromIDAndFileName(id, fileName string) string {
	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(filepath.Base(fileName), ext)
	return id + "_" + sanitizeStem(stem) + ext
}

// sanitizeStem lower-cases the filename stem and collapses runs of
// non-alphanumerics into single hyphens, trimming any at the edges.
func sanitizeStem(stem string) string {
	var b strings.Builder
	b.Grow(len(stem))
	lastHyphen := true
	for _, r := range strings.ToLower(stem) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
