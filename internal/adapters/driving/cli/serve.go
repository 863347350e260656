package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/logger"
)

var (
	serveAddr    string
	serveMCPAddr string
	serveWatch   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the assistant over HTTP.

Routes:
  GET    /health            index status
  POST   /index             build the codebase index (?force=true rebuilds)
  POST   /upload            multipart upload of a .txt document ("file")
  POST   /query             answer a question from documents or the codebase
  GET    /documents         list uploaded documents
  GET    /documents/:id     show a document
  DELETE /documents/:id     delete a document and its fragments
  POST   /assistant/query   generate file changes for an instruction

With --watch the codebase is re-indexed file by file as it changes.
With --mcp-addr the MCP server runs alongside on its own address.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from settings, :8000)")
	serveCmd.Flags().StringVar(&serveMCPAddr, "mcp-addr", "", "also serve MCP over HTTP on this address")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "re-index changed files while serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	addr, watch := serveAddr, serveWatch
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			if addr == "" {
				addr = settings.Server.Addr
			}
			watch = watch || settings.Corpus.Watch
		}
	}
	if addr == "" {
		addr = domain.DefaultAppSettings().Server.Addr
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Corpus:     corpusService,
		Query:      queryService,
		Generation: generationService,
		Document:   documentService,
	}, httpapi.Config{RequestLog: verbose})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if watch {
		startWatch(ctx)
	}
	if serveMCPAddr != "" {
		if err := startMCP(ctx, serveMCPAddr); err != nil {
			return err
		}
		cmd.Printf("codeassist MCP listening on %s\n", serveMCPAddr)
	}

	cmd.Printf("codeassist API listening on %s\n", addr)
	return server.Run(ctx, addr)
}

// startWatch indexes the corpus and follows its changes in the background.
func startWatch(ctx context.Context) {
	if watchCorpus == nil {
		logger.Warn("Corpus source cannot be watched; serving without --watch")
		return
	}

	go func() {
		if err := corpusService.Index(ctx, false); err != nil {
			logger.Error("Initial index failed: %v", err)
			return
		}
		if err := watchCorpus(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("%v", fmt.Errorf("watching corpus: %w", err))
		}
	}()
}

// startMCP runs the MCP HTTP transport until ctx is cancelled.
func startMCP(ctx context.Context, addr string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}
	go func() {
		if err := server.RunHTTP(ctx, addr); err != nil {
			logger.Slog().Error("mcp server stopped", "addr", addr, "err", err)
		}
	}()
	return nil
}
