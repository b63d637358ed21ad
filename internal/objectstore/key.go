package objectstore

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const keyPrefix = "documents/"

// NewKey builds a unique storage key for an uploaded file name.
func NewKey(filename string) string {
	return keyPrefix + uuid.NewString() + "-" + SanitizeFilename(filename)
}

// SanitizeFilename strips path components, quotes and control characters from a client-supplied name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, "\"", "")

	b := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 32 || r == 127 {
			r = ' '
		}
		b = append(b, r)
	}
	s := strings.Join(strings.Fields(string(b)), " ")
	if s == "" || s == "." || s == "/" || s == ".." {
		return "file"
	}
	return s
}
