// Package chunker splits extracted text into overlapping spans and
// upserts them into the vector store with fingerprint-based deduplication.
package chunker

// Options controls span size and overlap, measured in runes so multibyte
// text never splits mid-character.
type Options struct {
	Size    int
	Overlap int
}

// DefaultOptions mirrors the configuration defaults.
var DefaultOptions = Options{Size: 1000, Overlap: 200}

// Split cuts text into overlapping spans. Consecutive spans share
// Overlap runes so context crossing a boundary survives in at least one
// chunk. The final span may be shorter than Size.
func Split(text string, opts Options) []string {
	if opts.Size <= 0 {
		opts = DefaultOptions
	}
	if opts.Overlap >= opts.Size {
		opts.Overlap = opts.Size / 4
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= opts.Size {
		return []string{text}
	}

	step := opts.Size - opts.Overlap
	var spans []string
	for start := 0; start < len(runes); start += step {
		end := min(start+opts.Size, len(runes))
		spans = append(spans, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return spans
}
