package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var generateJSON bool

var generateCmd = &cobra.Command{
	Use:   "generate [instruction]",
	Short: "Generate code changes from an instruction",
	Long: `Retrieves codebase context and database schema files, asks the LLM for a
structured set of file changes and validates the answer, retrying when the
output is malformed.

The changes are printed, not written to disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generationService == nil {
		return errors.New("generation service not configured")
	}

	result, err := generationService.Generate(cmd.Context(), args[0])
	if err != nil {
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) {
			return fmt.Errorf("generation failed after %d attempts: %w", genErr.Attempts, genErr.Err)
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	if generateJSON {
		return outputJSON(cmd, result)
	}

	p := newPrinter(cmd)
	cmd.Println(p.Title(result.Summary))
	if len(result.Assumptions) > 0 {
		cmd.Println()
		cmd.Println(p.Muted("Assumptions:"))
		for _, a := range result.Assumptions {
			cmd.Printf("  - %s\n", a)
		}
	}
	for _, f := range result.Files {
		cmd.Println()
		cmd.Printf("%s %s %s\n", p.Label(string(f.Action)), f.Path, p.Muted("("+f.Language+")"))
		cmd.Println(f.Content)
	}
	return nil
}
