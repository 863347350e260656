// Package input is the one-line prompt shared by the search, ask and
// generate views.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
)

const (
	// charLimit fits a long generation instruction.
	charLimit = 1024

	// fieldChrome is the border and padding of the input field.
	fieldChrome = 6
	minField    = 20
)

// Prompt is a labelled textinput. Value, SetValue, Focus, Blur, Focused and
// Reset come from the embedded model.
type Prompt struct {
	textinput.Model

	styles *styles.Styles
	label  string
	width  int
}

// NewPrompt returns a focused prompt.
func NewPrompt(s *styles.Styles, label, placeholder string) *Prompt {
	if s == nil {
		s = styles.DefaultStyles()
	}
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = charLimit
	ti.Focus()

	p := &Prompt{Model: ti, styles: s, label: label}
	p.SetWidth(80)
	return p
}

// Init starts the cursor blinking.
func (p *Prompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update feeds msg to the input.
func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	var cmd tea.Cmd
	p.Model, cmd = p.Model.Update(msg)
	return p, cmd
}

// View renders "Label: [input]".
func (p *Prompt) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Center,
		p.styles.Title.Render(p.label+": "),
		p.styles.InputField.Render(p.Model.View()),
	)
}

func (p *Prompt) Label() string { return p.label }

// SetLabel changes the label, keeping the total width.
func (p *Prompt) SetLabel(label string) {
	p.label = label
	p.SetWidth(p.width)
}

// SetWidth fits label and field into width columns. The field never
// shrinks below minField.
func (p *Prompt) SetWidth(width int) {
	p.width = width
	p.Model.Width = max(width-lipgloss.Width(p.label+": ")-fieldChrome, minField)
}

func (p *Prompt) Width() int { return p.width }
