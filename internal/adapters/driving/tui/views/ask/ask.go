// Package ask provides the question answering view for the TUI.
package ask

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

// ErrNoQueryService indicates that no query service was provided.
var ErrNoQueryService = errors.New("question answering is not configured")

// View asks grounded questions against the codebase or uploaded documents.
type View struct {
	styles    *styles.Styles
	input     *input.Prompt
	statusbar *status.Bar

	query driving.QueryService
	ctx   context.Context
	scope domain.SearchScope
	topK  int

	answer *domain.Answer
	err    error
	width  int
	height int
	ready  bool
}

// NewView creates a new ask view. Questions default to the codebase scope.
func NewView(s *styles.Styles, km *keymap.KeyMap, query driving.QueryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:    s,
		input:     input.NewPrompt(s, "", "Ask a question and press enter..."),
		statusbar: status.NewBar(s, km),
		query:     query,
		ctx:       context.Background(),
		scope:     domain.ScopeCodebase,
		width:     80,
		height:    24,
	}
	v.syncLabel()
	return v
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

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.answer = msg.Answer
		v.statusbar.Clear()
		v.statusbar.SetMessage(fmt.Sprintf("Answered from %d fragments", len(msg.Answer.Sources)))
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.statusbar.Busy() && msg.Type != tea.KeyEsc {
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case tea.KeyTab:
		v.ToggleScope()
		return v, nil
	case tea.KeyEnter:
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.err = nil
		v.answer = nil
		v.statusbar.SetState(status.StateThinking)
		return v, v.ask(question)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) ask(question string) tea.Cmd {
	query, ctx, scope, topK := v.query, v.ctx, v.scope, v.topK
	return func() tea.Msg {
		if query == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}
		answer, err := query.Ask(ctx, question, scope, topK)
		return messages.AnswerCompleted{Answer: answer, Err: err}
	}
}

// ToggleScope switches between the codebase and uploaded documents.
func (v *View) ToggleScope() {
	if v.scope == domain.ScopeCodebase {
		v.scope = domain.ScopeDocuments
	} else {
		v.scope = domain.ScopeCodebase
	}
	v.syncLabel()
}

func (v *View) syncLabel() {
	v.input.SetLabel(fmt.Sprintf("Ask (%s)", v.scope))
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{
		v.styles.Title.Render("Ask"),
		v.styles.Muted.Render("[tab] switch between codebase and documents"),
		"",
		v.input.View(),
		"",
	}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.answer != nil {
		wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
		sections = append(sections,
			v.styles.Subtitle.Render("Answer"),
			wrap.Render(v.answer.Answer),
			"",
			v.styles.Subtitle.Render("Sources"),
		)
		if len(v.answer.Sources) == 0 {
			sections = append(sections, v.styles.Muted.Render("  none"))
		}
		for i := range v.answer.Sources {
			hit := &v.answer.Sources[i]
			sections = append(sections, "  "+v.styles.Path.Render(hit.Label())+"  "+
				v.styles.ScoreStyle(hit.Score).Render(fmt.Sprintf("%.3f", hit.Score)))
		}
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
}

// Scope returns the retrieval scope for the next question.
func (v *View) Scope() domain.SearchScope {
	return v.scope
}

// Answer returns the last answer, if any.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset clears the question and answer but keeps the chosen scope.
func (v *View) Reset() {
	v.input.SetValue("")
	v.input.Focus()
	v.answer = nil
	v.err = nil
	v.statusbar.Clear()
}
