package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docsentry/docsentry/internal/db"
	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// mockStore implements vectordb.Store for testing.
type mockStore struct {
	records []vectordb.Record
}

func (m *mockStore) Upsert(_ context.Context, records []vectordb.Record) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *mockStore) Query(_ context.Context, query string, limit int, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	var results []vectordb.SearchResult
	for _, rec := range m.records {
		if filter != nil && filter.Classification != nil && rec.Metadata.Classification != *filter.Classification {
			continue
		}
		results = append(results, vectordb.SearchResult{
			Record:     rec,
			Similarity: 0.95,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockStore) Fingerprints(_ context.Context, _ string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (m *mockStore) DeleteDocument(_ context.Context, _ string) error  { return nil }
func (m *mockStore) DeleteRecords(_ context.Context, _ []string) error { return nil }
func (m *mockStore) Persist(_ context.Context, _ string) error         { return nil }
func (m *mockStore) Load(_ context.Context, _ string) error            { return nil }
func (m *mockStore) Count() int                                        { return len(m.records) }

func newTestDeps(t *testing.T) (*session.Store, *document.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return session.NewStore(database), document.NewStore(database)
}

func TestToolDefinitions(t *testing.T) {
	// Verify tool names and required properties.
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"query_documents", queryDocumentsTool, "query_documents"},
		{"search_history", searchHistoryTool, "search_history"},
		{"list_documents", listDocumentsTool, "list_documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	sessions, catalog := newTestDeps(t)
	store := &mockStore{}
	srv := NewServer(store, sessions, catalog)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.store != store {
		t.Error("store not set correctly")
	}
}

func TestHandleQueryDocuments(t *testing.T) {
	sessions, catalog := newTestDeps(t)
	store := &mockStore{
		records: []vectordb.Record{
			{
				ID:      "doc1:0",
				Content: "Quarterly security posture summary.",
				Metadata: vectordb.RecordMetadata{
					DocumentID:     "doc1",
					Filename:       "posture.txt",
					Classification: "Internal",
					Keywords:       []string{"security", "quarterly"},
				},
			},
			{
				ID:      "doc2:0",
				Content: "Payroll processing schedule.",
				Metadata: vectordb.RecordMetadata{
					DocumentID:     "doc2",
					Filename:       "payroll.txt",
					Classification: "Confidential",
				},
			},
		},
	}
	srv := NewServer(store, sessions, catalog)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "security posture",
		}

		result, err := srv.handleQueryDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("classification filter", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query":          "payroll",
			"classification": "Confidential",
			"limit":          float64(3),
		}

		result, err := srv.handleQueryDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := toolText(t, result)
		if !strings.Contains(text, "payroll.txt") || strings.Contains(text, "posture.txt") {
			t.Errorf("filter not applied: %s", text)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleQueryDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("empty store", func(t *testing.T) {
		emptySrv := NewServer(&mockStore{}, sessions, catalog)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "anything",
		}

		result, err := emptySrv.handleQueryDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("empty store should not be a tool error: %v", result.Content)
		}
	})
}

func TestHandleSearchHistory(t *testing.T) {
	sessions, catalog := newTestDeps(t)
	srv := NewServer(&mockStore{}, sessions, catalog)
	ctx := context.Background()

	sess, err := sessions.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	err = sessions.AppendExchange(ctx, sess.ID,
		&session.Turn{Role: session.RoleUser, Content: "What did the phishing email look like?"},
		&session.Turn{Role: session.RoleAssistant, Content: "It imitated the payroll portal."},
	)
	if err != nil {
		t.Fatalf("AppendExchange: %v", err)
	}

	t.Run("finds matching turn", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"user":  "alice",
			"query": "phishing email",
		}

		result, err := srv.handleSearchHistory(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if text := toolText(t, result); !strings.Contains(text, "phishing") {
			t.Errorf("match not reported: %s", text)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "x"}

		result, err := srv.handleSearchHistory(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing user")
		}
	})

	t.Run("no matches", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"user":  "alice",
			"query": "zzzzzzzz",
		}

		result, err := srv.handleSearchHistory(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("no matches should not be a tool error: %v", result.Content)
		}
	})
}

func TestHandleListDocuments(t *testing.T) {
	sessions, catalog := newTestDeps(t)
	srv := NewServer(&mockStore{}, sessions, catalog)
	ctx := context.Background()

	doc := document.New("doc1", "/inbox/report.txt", "hash1")
	doc.Type = ".txt"
	doc.Metadata["category"] = "Security Report"
	doc.Metadata["sensitivity"] = "Confidential"
	if err := doc.SetStatus(document.StatusSuccess); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := catalog.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	result, err := srv.handleListDocuments(ctx, mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := toolText(t, result)
	if !strings.Contains(text, "report.txt") || !strings.Contains(text, "Security Report") {
		t.Errorf("catalog not reported: %s", text)
	}
}

// toolText extracts the text payload from a tool result.
func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("tool result content is not text: %T", result.Content[0])
	}
	return tc.Text
}
