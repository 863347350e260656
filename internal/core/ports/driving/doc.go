// Package driving declares what the CLI, TUI, MCP server and HTTP API may
// ask of the core. internal/core/services implements every interface here.
package driving
