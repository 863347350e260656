package ask

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

type mockQuery struct {
	answer *domain.Answer
	err    error

	lastQuestion string
	lastScope    domain.SearchScope
}

func (m *mockQuery) Ask(_ context.Context, question string, scope domain.SearchScope, _ int) (*domain.Answer, error) {
	m.lastQuestion = question
	m.lastScope = scope
	return m.answer, m.err
}

func typeInto(v *View, s string) {
	for _, r := range s {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func submit(t *testing.T, v *View) tea.Msg {
	t.Helper()
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	v.Update(msg)
	return msg
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, &mockQuery{})

	require.NotNil(t, view)
	assert.Equal(t, domain.ScopeCodebase, view.Scope())
	assert.Equal(t, "Ask (codebase)", view.input.Label())
	assert.Nil(t, view.Answer())
	assert.NotNil(t, view.Init())
}

func TestView_ToggleScope(t *testing.T) {
	view := NewView(nil, nil, nil)

	view.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.ScopeDocuments, view.Scope())
	assert.Equal(t, "Ask (documents)", view.input.Label())

	view.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.ScopeCodebase, view.Scope())
}

func TestView_Ask(t *testing.T) {
	query := &mockQuery{answer: &domain.Answer{
		Question: "where is main?",
		Answer:   "main lives in cmd/app/main.go",
		Sources: []domain.SearchHit{{
			ID: "cmd/app/main.go:0", Score: 0.8,
			Metadata: map[string]any{domain.MetaPath: "cmd/app/main.go", domain.MetaChunkIndex: 0},
		}},
	}}
	view := NewView(nil, nil, query)
	view.SetDimensions(100, 30)
	view.Update(tea.KeyMsg{Type: tea.KeyTab})

	typeInto(view, "where is main?")
	msg := submit(t, view)

	assert.IsType(t, messages.AnswerCompleted{}, msg)
	assert.Equal(t, "where is main?", query.lastQuestion)
	assert.Equal(t, domain.ScopeDocuments, query.lastScope)
	require.NotNil(t, view.Answer())

	out := view.View()
	assert.Contains(t, out, "main lives in cmd/app/main.go")
	assert.Contains(t, out, "cmd/app/main.go #0")
	assert.Contains(t, out, "Answered from 1 fragments")
}

func TestView_Ask_BlankQuestion(t *testing.T) {
	view := NewView(nil, nil, &mockQuery{})
	typeInto(view, "   ")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestView_Ask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   *mockQuery
		wantErr error
	}{
		{"llm down", &mockQuery{err: domain.ErrLLMUnavailable}, domain.ErrLLMUnavailable},
		{"no service", nil, ErrNoQueryService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var view *View
			if tt.query == nil {
				view = NewView(nil, nil, nil)
			} else {
				view = NewView(nil, nil, tt.query)
			}
			view.SetDimensions(100, 30)
			typeInto(view, "why?")
			submit(t, view)

			assert.ErrorIs(t, view.Err(), tt.wantErr)
			assert.Nil(t, view.Answer())
			assert.Contains(t, view.View(), "Error:")
		})
	}
}

func TestView_IgnoresKeysWhileThinking(t *testing.T) {
	view := NewView(nil, nil, &mockQuery{answer: &domain.Answer{}})
	typeInto(view, "q")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	view.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.ScopeCodebase, view.Scope())

	_, again := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_ResetKeepsScope(t *testing.T) {
	view := NewView(nil, nil, &mockQuery{answer: &domain.Answer{Answer: "yes"}})
	view.Update(tea.KeyMsg{Type: tea.KeyTab})
	typeInto(view, "q")
	submit(t, view)
	view.Update(messages.ErrorOccurred{Err: errors.New("late")})

	view.Reset()

	assert.Nil(t, view.Answer())
	assert.NoError(t, view.Err())
	assert.Equal(t, "", view.input.Value())
	assert.Equal(t, domain.ScopeDocuments, view.Scope())
}

func TestView_View_NotReady(t *testing.T) {
	view := NewView(nil, nil, nil)
	assert.Equal(t, "Initialising...", view.View())
}
