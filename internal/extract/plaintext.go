package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// PlaintextExtractor reads UTF-8 text files as-is.
type PlaintextExtractor struct{}

func (e *PlaintextExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}
