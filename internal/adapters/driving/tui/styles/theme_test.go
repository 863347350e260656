package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestDefaultTheme_StatusColoursDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]string)
	for name, c := range map[string]lipgloss.Color{
		"accent":  theme.Accent,
		"info":    theme.Info,
		"good":    theme.Good,
		"caution": theme.Caution,
		"bad":     theme.Bad,
	} {
		require.NotEmpty(t, string(c), name)
		prev, dup := seen[c]
		assert.False(t, dup, "%s reuses the colour of %s", name, prev)
		seen[c] = name
	}
}

func TestNewStyles(t *testing.T) {
	theme := DefaultTheme()
	assert.Same(t, theme, NewStyles(theme).Theme())
	assert.NotNil(t, NewStyles(nil).Theme())
	assert.Equal(t, theme, DefaultStyles().Theme())
}

func TestStyles_CodeKeepsLines(t *testing.T) {
	rendered := DefaultStyles().Code.Render("func main() {\n}")
	assert.Contains(t, rendered, "func main() {")
	assert.Equal(t, 2, lipgloss.Height(rendered))
}

func TestStyles_ScoreStyle(t *testing.T) {
	s := DefaultStyles()

	tests := []struct {
		score float64
		want  lipgloss.Style
	}{
		{0.91, s.Success},
		{StrongMatch, s.Success},
		{0.5, s.Warning},
		{WeakMatch, s.Warning},
		{0.1, s.Muted},
		{-0.2, s.Muted},
	}
	for _, tt := range tests {
		got := s.ScoreStyle(tt.score)
		assert.Equal(t, tt.want.GetForeground(), got.GetForeground(), "score %.2f", tt.score)
	}
}

func TestStyles_ActionStyle(t *testing.T) {
	s := DefaultStyles()

	assert.Equal(t, s.Success.GetForeground(), s.ActionStyle(domain.FileActionCreate).GetForeground())
	assert.Equal(t, s.Warning.GetForeground(), s.ActionStyle(domain.FileActionModify).GetForeground())
	assert.Contains(t, s.ActionStyle(domain.FileActionModify).Render("modify"), "modify")
}
