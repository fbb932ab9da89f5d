package render

import (
	"regexp"
	"strings"
)

// Document is a rendered, self-contained file.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename builds a download name from a proposal number.
func Filename(number, ext string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(number, "_"), "_")
	if base == "" {
		base = "orcamento"
	}
	return base + "." + ext
}
