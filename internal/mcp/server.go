// Package mcp exposes document search and conversation history over the
// Model Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/session"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the document store's search
// tools.
type Server struct {
	store    vectordb.Store
	sessions *session.Store
	catalog  *document.Store
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(store vectordb.Store, sessions *session.Store, catalog *document.Store) *Server {
	s := &Server{
		store:    store,
		sessions: sessions,
		catalog:  catalog,
	}

	s.mcp = server.NewMCPServer(
		"docsentry",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(queryDocumentsTool, s.handleQueryDocuments)
	s.mcp.AddTool(searchHistoryTool, s.handleSearchHistory)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
