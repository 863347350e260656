package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search, ask and generate as MCP tools",
	Long: `Expose the indexed codebase to an MCP client such as an editor agent.

Tools: search_codebase, ask (when an LLM is configured) and generate_code.
Uploaded documents are listed as resources.

The server speaks JSON-RPC on stdin/stdout unless --addr is given, in which
case it serves the streamable HTTP transport on that address.

Client entry for stdio:
  {"mcpServers": {"codeassist": {"command": "codeassist", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVarP(&mcpAddr, "addr", "a", "", "serve streamable HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func newMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Corpus:     corpusService,
		Query:      queryService,
		Generation: generationService,
		Document:   documentService,
	})
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}
	if mcpAddr == "" {
		return server.Run(cmd.Context())
	}
	cmd.Printf("codeassist MCP listening on %s\n", mcpAddr)
	return server.RunHTTP(cmd.Context(), mcpAddr)
}
