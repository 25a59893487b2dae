package engine

import (
	"fmt"
	"strings"

	"github.com/docsentry/docsentry/internal/vectordb"
)

const reformulatePrompt = `You rewrite the latest user message into a standalone search query.
Resolve pronouns and references using the conversation. Reply with the rewritten query only, no commentary.`

// answerPrompt embeds the retrieved chunks into the system message. With
// zero hits the model is told so instead of being handed an empty list.
func answerPrompt(retrieved []vectordb.SearchResult) string {
	var b strings.Builder
	b.WriteString("You answer questions about the user's ingested documents.\n")
	b.WriteString("Ground every claim in the excerpts below and say so when they do not cover the question.\n\n")

	if len(retrieved) == 0 {
		b.WriteString("No matching document excerpts were found for this question.\n")
		return b.String()
	}

	b.WriteString("Document excerpts:\n")
	for i, r := range retrieved {
		meta := r.Record.Metadata
		fmt.Fprintf(&b, "--- excerpt %d (file: %s, classification: %s) ---\n%s\n",
			i+1, meta.Filename, meta.Classification, r.Record.Content)
	}
	return b.String()
}
