package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the codebase",
	Long: `Walks the configured codebase, splits every text file into overlapping
chunks and stores their embeddings in the vector index.

An index left by a previous run is reused unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "rebuild even if an index exists")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	if err := corpusService.Index(cmd.Context(), indexForce); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	p := newPrinter(cmd)
	stats := corpusService.Stats()
	cmd.Println(p.Title("Indexed " + stats.Source))
	cmd.Printf("  Files:    %d\n", stats.Files)
	if stats.Skipped > 0 {
		cmd.Printf("  Skipped:  %d\n", stats.Skipped)
	}
	cmd.Printf("  Chunks:   %d\n", stats.Chunks)
	cmd.Printf("  Backend:  %s\n", stats.Backend)
	if stats.Duration > 0 {
		cmd.Printf("  Duration: %s\n", stats.Duration.Round(time.Millisecond))
	}
	return nil
}
