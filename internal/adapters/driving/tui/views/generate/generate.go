// Package generate provides the code generation view for the TUI.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// ErrNoGenerationService indicates that no generation service was provided.
var ErrNoGenerationService = errors.New("code generation is not configured")

// View sends an instruction to the generation service and browses the
// returned file changes.
type View struct {
	styles    *styles.Styles
	input     *input.Prompt
	statusbar *status.Bar

	generator driving.GenerationService
	ctx       context.Context

	result     *domain.GenerationResult
	selected   int
	focusInput bool
	err        error
	width      int
	height     int
	ready      bool
}

// NewView creates a new generate view.
func NewView(s *styles.Styles, km *keymap.KeyMap, generator driving.GenerationService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		input:      input.NewPrompt(s, "Instruction", "Add a repository method that..."),
		statusbar:  status.NewBar(s, km),
		generator:  generator,
		ctx:        context.Background(),
		focusInput: true,
		width:      80,
		height:     24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the generate view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.GenerationCompleted:
		v.handleCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	if v.statusbar.Busy() {
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			instruction := strings.TrimSpace(v.input.Value())
			if instruction == "" {
				return v, nil
			}
			v.err = nil
			v.result = nil
			v.focusInput = false
			v.input.Blur()
			v.statusbar.SetState(status.StateGenerating)
			return v, v.generate(instruction)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.result != nil && v.selected < len(v.result.Files)-1 {
			v.selected++
		}
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}
	return v, nil
}

func (v *View) generate(instruction string) tea.Cmd {
	generator, ctx := v.generator, v.ctx
	return func() tea.Msg {
		if generator == nil {
			return messages.ErrorOccurred{Err: ErrNoGenerationService}
		}
		result, err := generator.Generate(ctx, instruction)
		return messages.GenerationCompleted{Result: result, Err: err}
	}
}

func (v *View) handleCompleted(msg messages.GenerationCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.err = nil
	v.result = msg.Result
	v.selected = 0
	v.statusbar.Clear()
	v.statusbar.SetMessage(fmt.Sprintf("%d file changes", len(msg.Result.Files)))
}

func (v *View) setError(err error) {
	v.err = err
	// Keep the instruction so it can be edited and retried.
	v.focusInput = true
	v.input.Focus()
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the generate view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("Generate code"), "", v.input.View(), ""}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
		var genErr *domain.GenerationError
		if errors.As(v.err, &genErr) {
			sections = append(sections, v.styles.Muted.Render(
				fmt.Sprintf("Gave up after %d attempts", genErr.Attempts)))
		}
		sections = append(sections, "")
	}

	if v.result != nil {
		sections = append(sections, v.renderResult()...)
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderResult() []string {
	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
	out := []string{v.styles.Subtitle.Render("Summary"), wrap.Render(v.result.Summary), ""}

	if len(v.result.Assumptions) > 0 {
		out = append(out, v.styles.Subtitle.Render("Assumptions"))
		for _, a := range v.result.Assumptions {
			out = append(out, wrap.Render("  - "+a))
		}
		out = append(out, "")
	}

	out = append(out, v.styles.Subtitle.Render("Files"))
	if len(v.result.Files) == 0 {
		return append(out, v.styles.Muted.Render("  no changes"))
	}
	for i, f := range v.result.Files {
		action := fmt.Sprintf("%-7s", f.Action)
		lang := ""
		if f.Language != "" {
			lang = " (" + f.Language + ")"
		}
		if i == v.selected {
			out = append(out, v.styles.Selected.Render("> "+action+" "+f.Path+lang))
		} else {
			out = append(out, "  "+v.styles.ActionStyle(f.Action).Render(action)+" "+
				v.styles.Path.Render(f.Path)+v.styles.Muted.Render(lang))
		}
	}

	if f := v.SelectedFile(); f != nil && f.Content != "" {
		out = append(out, "", v.styles.Code.Render(clip(f.Content, max(v.height-20, 5))))
	}
	return out
}

// clip keeps at most n lines of s.
func clip(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n... %d more lines", len(lines)-n)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
}

// Result returns the last generation result, if any.
func (v *View) Result() *domain.GenerationResult {
	return v.result
}

// SelectedFile returns the highlighted file change, or nil.
func (v *View) SelectedFile() *domain.FileChange {
	if v.result == nil || v.selected >= len(v.result.Files) {
		return nil
	}
	return &v.result.Files[v.selected]
}

// InputFocused returns whether the instruction input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset clears the instruction and any result.
func (v *View) Reset() {
	v.focusInput = true
	v.input.SetValue("")
	v.input.Focus()
	v.result = nil
	v.selected = 0
	v.err = nil
	v.statusbar.Clear()
}
