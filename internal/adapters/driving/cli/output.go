package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// snippetWidth bounds the preview line under each hit.
const snippetWidth = 100

// printer styles command output when it goes to a terminal.
type printer struct {
	styled bool
	title  lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
	ok     lipgloss.Style
}

func newPrinter(cmd *cobra.Command) *printer {
	styled := false
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &printer{
		styled: styled,
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
	}
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) Title(text string) string { return p.render(p.title, text) }
func (p *printer) Label(text string) string { return p.render(p.label, text) }
func (p *printer) Muted(text string) string { return p.render(p.muted, text) }
func (p *printer) Warn(text string) string  { return p.render(p.warn, text) }
func (p *printer) OK(text string) string    { return p.render(p.ok, text) }

// Hits prints one numbered entry per hit: label, score and first line.
func (p *printer) Hits(cmd *cobra.Command, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}
	cmd.Println(p.Title("Results:"))
	cmd.Println()
	for i, hit := range hits {
		cmd.Printf("  [%d] %s %s\n", i+1, p.Label(hit.Label()), p.Muted(fmt.Sprintf("(%.3f)", hit.Score)))
		if s := firstLine(hit.Text); s != "" {
			cmd.Printf("      %s\n", s)
		}
		cmd.Println()
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// firstLine returns the first non-blank line of text, cut to snippetWidth.
func firstLine(text string) string {
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			return ansi.Truncate(line, snippetWidth, "...")
		}
	}
	return ""
}
