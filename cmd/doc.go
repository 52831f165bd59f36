// Package cmd implements the command-line interface for inoreader-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server (default when no subcommand is given)
//   - auth login|logout|status: Manage the stored Inoreader token
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
