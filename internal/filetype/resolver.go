// Package filetype resolves the true content type of an uploaded file.
// MIME sniffing alone misreports office documents, which are zip archives
// underneath; the resolver corrects for that by inspecting archive entries.
package filetype

import (
	"archive/zip"
	"bytes"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// officePrefixes maps zip entry path prefixes to the specific office
// extension they identify. First match wins.
var officePrefixes = []struct {
	prefix string
	ext    string
}{
	{"ppt/", ".pptx"},
	{"word/", ".docx"},
	{"xl/", ".xlsx"},
}

// Resolve sniffs the file at path and returns its canonical extension.
// The empty string means the type could not be determined. Resolve makes
// no network or model calls and has no side effects.
func Resolve(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ResolveBytes(data), nil
}

// ResolveBytes resolves the extension for in-memory file content.
func ResolveBytes(data []byte) string {
	mt := mimetype.Detect(data)
	ext := mt.Extension()

	if ext == ".zip" {
		if resolved := resolveZip(data); resolved != "" {
			return resolved
		}
	}
	return ext
}

// resolveZip opens data as a zip archive and matches entry paths against
// the known office package prefixes. A corrupt archive yields the empty
// string so the caller keeps the generic zip type.
func resolveZip(data []byte) string {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, op := range officePrefixes {
		for _, f := range r.File {
			if strings.HasPrefix(f.Name, op.prefix) {
				return op.ext
			}
		}
	}
	return ""
}
