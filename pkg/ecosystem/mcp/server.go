package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with clickcheck tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"clickcheck",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("clickcheck/validate",
			mcp.WithDescription("Validate a clickcheck configuration YAML file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the config YAML file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("clickcheck/schema",
			mcp.WithDescription("Export the clickcheck configuration JSON Schema"),
		),
		HandleSchema,
	)

	s.AddTool(
		mcp.NewTool("clickcheck/refs",
			mcp.WithDescription("Parse an accessibility snapshot into element refs and optionally resolve one"),
			mcp.WithString("snapshot", mcp.Description("Snapshot text (one element per line with [ref=...])")),
			mcp.WithString("path", mcp.Description("Path to a snapshot .yml file, used when snapshot is empty")),
			mcp.WithString("keywords", mcp.Description("Comma-separated keywords that must all appear in the description")),
			mcp.WithString("expr", mcp.Description("expr-lang predicate over desc (lower-cased) and raw")),
		),
		HandleRefs,
	)

	s.AddTool(
		mcp.NewTool("clickcheck/extract",
			mcp.WithDescription("Extract a room code from a page path or snapshot text"),
			mcp.WithString("pathname", mcp.Description("Page path such as /room/K7QP")),
			mcp.WithString("snapshot", mcp.Description("Snapshot text to scan when the path has no code")),
		),
		HandleExtract,
	)

	s.AddTool(
		mcp.NewTool("clickcheck/run",
			mcp.WithDescription("Run the end-to-end harness offline against a recorded scenario"),
			mcp.WithString("scenario", mcp.Required(), mcp.Description("Path to the replay scenario YAML file")),
			mcp.WithString("config", mcp.Description("Path to a config YAML file (optional)")),
		),
		HandleRun,
	)

	return s
}
