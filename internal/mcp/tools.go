// Package mcp exposes load-test suites as MCP tools.
package mcp

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/load-testing/internal/server"
)

// RegisterTools registers all MCP tools with the server.
func RegisterTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := registerSuiteTools(s, sc); err != nil {
		return err
	}
	if err := registerResultTools(s, sc); err != nil {
		return err
	}
	return nil
}
