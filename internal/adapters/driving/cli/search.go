package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed codebase",
	Long: `Embeds the query and prints the codebase fragments closest to it by
cosine similarity. An unindexed codebase is indexed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print hits as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}
	hits, err := corpusService.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return outputJSON(cmd, hits)
	}
	newPrinter(cmd).Hits(cmd, hits)
	return nil
}
