package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// handleQueryDocuments performs semantic search over the document store.
func (s *Server) handleQueryDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	var filter *vectordb.SearchFilter
	if cls := request.GetString("classification", ""); cls != "" {
		filter = &vectordb.SearchFilter{Classification: &cls}
	}

	results, err := s.store.Query(ctx, query, limit, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The document store may be empty; ingest files with `docsentry ingest`."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleSearchHistory fuzzy-searches a user's stored conversation turns.
func (s *Server) handleSearchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := request.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	opts := session.DefaultSearchOptions
	if limit := request.GetInt("limit", 0); limit > 0 {
		opts.TopK = limit
	}

	matches, err := s.sessions.Search(ctx, user, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history search failed: %v", err)), nil
	}

	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No past turns of user %q match %q.", user, query)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d matching turn(s):\n", len(matches)))
	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("\n--- Match %d (score %.2f) ---\n", i+1, m.Score))
		sb.WriteString(fmt.Sprintf("Session: %s\n", m.Turn.SessionID))
		sb.WriteString(fmt.Sprintf("%s: %s\n", m.Turn.Role, m.Turn.Content))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListDocuments returns the full document catalog.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.catalog.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}

	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents ingested yet."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n", len(docs)))
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("\n- %s\n  status: %s", d.SourcePath, d.Status))
		if cat := d.Metadata["category"]; cat != "" {
			sb.WriteString(fmt.Sprintf("\n  classification: %s / %s", cat, d.Metadata["sensitivity"]))
		}
		if detail := d.Metadata["error_detail"]; detail != "" {
			sb.WriteString(fmt.Sprintf("\n  error: %s", detail))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults converts search results into a rich text format
// optimized for AI agent consumption.
func formatSearchResults(results []vectordb.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))

		meta := r.Record.Metadata
		if meta.Filename != "" {
			sb.WriteString(fmt.Sprintf("File: %s (chunk %d)\n", meta.Filename, meta.ChunkIndex))
		}
		if meta.Classification != "" {
			sb.WriteString(fmt.Sprintf("Classification: %s / %s\n", meta.Classification, meta.Sensitivity))
		}
		if len(meta.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf("Keywords: %s\n", strings.Join(meta.Keywords, ", ")))
		}
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Similarity*100))

		sb.WriteString("\n")
		sb.WriteString(r.Record.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
