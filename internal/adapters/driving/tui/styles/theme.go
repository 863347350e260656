// Package styles provides the colour palette and lipgloss styles of the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// Similarity thresholds for ScoreStyle. Cosine scores of unit vectors from
// code embedding models rarely pass 0.8 even for close matches.
const (
	StrongMatch = 0.6
	WeakMatch   = 0.35
)

// Theme is the colour palette.
type Theme struct {
	Accent  lipgloss.Color
	Info    lipgloss.Color
	Text    lipgloss.Color
	Dim     lipgloss.Color
	Panel   lipgloss.Color
	Outline lipgloss.Color
	Good    lipgloss.Color
	Caution lipgloss.Color
	Bad     lipgloss.Color
}

// DefaultTheme returns the dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#2DD4BF"),
		Info:    lipgloss.Color("#93C5FD"),
		Text:    lipgloss.Color("#E2E8F0"),
		Dim:     lipgloss.Color("#64748B"),
		Panel:   lipgloss.Color("#0F172A"),
		Outline: lipgloss.Color("#334155"),
		Good:    lipgloss.Color("#86EFAC"),
		Caution: lipgloss.Color("#FCD34D"),
		Bad:     lipgloss.Color("#FCA5A5"),
	}
}

// Styles holds the rendered styles every view shares.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style

	// Code frames source fragments and generated file contents.
	Code lipgloss.Style

	// Path renders file paths and uploaded filenames.
	Path lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Styles{
		theme:    theme,
		Title:    fg(theme.Accent).Bold(true),
		Subtitle: fg(theme.Info).Bold(true),
		Normal:   fg(theme.Text),
		Muted:    fg(theme.Dim),
		Selected: fg(theme.Panel).Background(theme.Accent).Bold(true),
		Error:    fg(theme.Bad),
		Success:  fg(theme.Good),
		Warning:  fg(theme.Caution),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Outline).
			Padding(0, 1),
		StatusBar: fg(theme.Dim).Background(theme.Panel).Padding(0, 1),
		Help:      fg(theme.Dim).Italic(true),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Outline),
		Code: fg(theme.Text).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderForeground(theme.Outline).
			PaddingLeft(1),
		Path: fg(theme.Info).Underline(true),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// ScoreStyle colours a similarity score by how strong the match is.
func (s *Styles) ScoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= StrongMatch:
		return s.Success
	case score >= WeakMatch:
		return s.Warning
	default:
		return s.Muted
	}
}

// ActionStyle colours a generated file by its action.
func (s *Styles) ActionStyle(action domain.FileAction) lipgloss.Style {
	if action == domain.FileActionModify {
		return s.Warning
	}
	return s.Success
}
