// Package main provides the clickcheck-mcp binary: an MCP server exposing
// config validation, snapshot inspection and scenario replay to AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	cmcp "github.com/ormasoftchile/clickcheck/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	s := cmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
