package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// DocxExtractor pulls paragraph text out of word/document.xml inside the
// docx zip container.
type DocxExtractor struct{}

func (e *DocxExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening document.xml in %s: %w", path, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading document.xml in %s: %w", path, err)
		}
		return parseDocumentXML(content), nil
	}

	return "", fmt.Errorf("%s: no word/document.xml entry: %w", path, ErrUnsupportedFormat)
}

// documentXML mirrors the shape of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Texts []string `xml:"t"`
}

// parseDocumentXML joins paragraph run texts with newlines between
// paragraphs. Malformed XML yields whatever parsed before the failure.
func parseDocumentXML(data []byte) string {
	var doc documentXML
	_ = xml.Unmarshal(data, &doc)

	var paras []string
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Texts {
				b.WriteString(t)
			}
		}
		if b.Len() > 0 {
			paras = append(paras, b.String())
		}
	}
	return strings.Join(paras, "\n")
}
