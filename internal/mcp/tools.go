package mcp

import "github.com/mark3labs/mcp-go/mcp"

// queryDocumentsTool defines the query_documents MCP tool.
var queryDocumentsTool = mcp.NewTool("query_documents",
	mcp.WithDescription("Search the ingested documents semantically. Returns matching chunks with filename, classification, and keywords."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
	mcp.WithString("classification",
		mcp.Description("Only return chunks from documents with this classification"),
	),
)

// searchHistoryTool defines the search_history MCP tool.
var searchHistoryTool = mcp.NewTool("search_history",
	mcp.WithDescription("Fuzzy-search a user's past conversation turns."),
	mcp.WithString("user",
		mcp.Required(),
		mcp.Description("User whose conversations to search"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Text to look for in past turns"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of matches to return (default 5)"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List every ingested document with its extraction status and classification."),
)
