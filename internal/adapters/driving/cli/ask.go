package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var (
	askScope string
	askTopK  int
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the codebase or uploaded documents",
	Long: `Retrieves the fragments most similar to the question and asks the LLM to
answer using only those fragments. Without an LLM the fragments are printed.

Scopes:
  codebase   - the indexed codebase (default)
  documents  - documents added with 'codeassist document upload'`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askScope, "scope", "s", string(domain.ScopeCodebase), "codebase or documents")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 3, "number of fragments to answer from")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	scope := domain.SearchScope(askScope)
	if !scope.IsValid() {
		return fmt.Errorf("invalid scope %q: use codebase or documents", askScope)
	}

	answer, err := queryService.Ask(cmd.Context(), args[0], scope, askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputJSON(cmd, answer)
	}

	p := newPrinter(cmd)
	cmd.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println(p.Muted("Sources:"))
		for i := range answer.Sources {
			cmd.Printf("  %s %s\n", p.Label(answer.Sources[i].Label()),
				p.Muted(fmt.Sprintf("(%.3f)", answer.Sources[i].Score)))
		}
	}
	return nil
}
