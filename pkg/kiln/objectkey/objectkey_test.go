package objectkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromIDAndFileName(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		fileName string
		want     string
	}{
		{
			name:     "spaces collapse to hyphen, extension case kept",
			id:       "abc123",
			fileName: "My File.PNG",
			want:     "abc123_my-file.PNG",
		},
		{
			name:     "plain lowercase name unchanged",
			id:       "abc123",
			fileName: "report.pdf",
			want:     "abc123_report.pdf",
		},
		{
			name:     "punctuation runs collapse",
			id:       "id1",
			fileName: "Q3 -- Revenue (final).xlsx",
			want:     "id1_q3-revenue-final.xlsx",
		},
		{
			name:     "no extension",
			id:       "id1",
			fileName: "README",
			want:     "id1_readme",
		},
		{
			name:     "leading and trailing junk trimmed",
			id:       "id1",
			fileName: "  __draft__  .txt",
			want:     "id1_draft.txt",
		},
		{
			name:     "path components stripped",
			id:       "id1",
			fileName: "uploads/2024/Photo.JPG",
			want:     "id1_photo.JPG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromIDAndFileName(tt.id, tt.fileName))
		})
	}
}

func TestFromIDAndFileNameDistinctIDsNeverCollide(t *testing.T) {
	// Same filename under different identities must yield different keys.
	a := FromIDAndFileName("id-a", "My File.PNG")
	b := FromIDAndFileName("id-b", "My File.PNG")
	assert.NotEqual(t, a, b)

	// Deterministic per input.
	assert.Equal(t, a, FromIDAndFileName("id-a", "My File.PNG"))
}
