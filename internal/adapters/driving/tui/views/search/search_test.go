package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// mockCorpus implements driving.CorpusService for testing.
type mockCorpus struct {
	hits      []domain.SearchHit
	searchErr error
	indexErr  error
	stats     domain.CorpusStats

	lastQuery string
	lastTopK  int
	forced    bool
}

func (m *mockCorpus) Index(_ context.Context, force bool) error {
	m.forced = force
	return m.indexErr
}

func (m *mockCorpus) Search(_ context.Context, query string, topK int) ([]domain.SearchHit, error) {
	m.lastQuery = query
	m.lastTopK = topK
	return m.hits, m.searchErr
}

func (m *mockCorpus) IsIndexed() bool           { return m.stats.Indexed }
func (m *mockCorpus) Stats() domain.CorpusStats { return m.stats }

func testHits() []domain.SearchHit {
	return []domain.SearchHit{
		{
			ID: "main.go:0", Score: 0.91, Text: "func main() {\n\tserve()\n}",
			Metadata: map[string]any{domain.MetaPath: "main.go", domain.MetaChunkIndex: 0},
		},
		{
			ID: "server.go:3", Score: 0.72, Text: "func serve() error",
			Metadata: map[string]any{domain.MetaPath: "server.go", domain.MetaChunkIndex: 3},
		},
	}
}

func typeInto(v *View, s string) {
	for _, r := range s {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// searchFor types a query, submits it and feeds the result back into the view.
func searchFor(t *testing.T, v *View, query string) tea.Msg {
	t.Helper()
	typeInto(v, query)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	v.Update(msg)
	return msg
}

func TestNewView(t *testing.T) {
	view := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap(), &mockCorpus{})

	require.NotNil(t, view)
	assert.False(t, view.Ready())
	assert.Equal(t, "", view.Query())
	assert.True(t, view.InputFocused())
	assert.NotNil(t, view.Init())
}

func TestNewView_NilDependencies(t *testing.T) {
	view := NewView(nil, nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
}

func TestView_WithContext(t *testing.T) {
	type ctxKey string
	ctx := context.WithValue(context.Background(), ctxKey("k"), "v")
	view := NewView(nil, nil, nil)

	assert.Same(t, view, view.WithContext(ctx))
	assert.Equal(t, ctx, view.ctx)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Nil(t, cmd)
	assert.True(t, view.Ready())
	assert.NotContains(t, view.View(), "Initialising")
}

func TestView_Search(t *testing.T) {
	corpus := &mockCorpus{hits: testHits()}
	view := NewView(nil, nil, corpus)
	view.SetDimensions(100, 30)

	msg := searchFor(t, view, "entry point")

	completed, ok := msg.(messages.SearchCompleted)
	require.True(t, ok)
	assert.Equal(t, "entry point", completed.Query)
	assert.Equal(t, "entry point", corpus.lastQuery)
	assert.Equal(t, DefaultLimit, corpus.lastTopK)

	assert.False(t, view.InputFocused())
	assert.Equal(t, 2, view.List().Len())
	assert.NoError(t, view.Err())
	assert.Contains(t, view.View(), "main.go #0")
}

func TestView_Search_EmptyQueryIgnored(t *testing.T) {
	view := NewView(nil, nil, &mockCorpus{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, view.InputFocused())
}

func TestView_Search_Error(t *testing.T) {
	view := NewView(nil, nil, &mockCorpus{searchErr: domain.ErrEmbeddingUnavailable})
	view.SetDimensions(100, 30)

	searchFor(t, view, "anything")

	assert.ErrorIs(t, view.Err(), domain.ErrEmbeddingUnavailable)
	assert.Contains(t, view.View(), "Error:")
}

func TestView_Search_NoService(t *testing.T) {
	view := NewView(nil, nil, nil)

	msg := searchFor(t, view, "x")

	assert.Equal(t, messages.ErrorOccurred{Err: ErrNoCorpusService}, msg)
	assert.ErrorIs(t, view.Err(), ErrNoCorpusService)
}

func TestView_ResultsNavigationAndPreview(t *testing.T) {
	view := NewView(nil, nil, &mockCorpus{hits: testHits()})
	view.SetDimensions(100, 30)
	searchFor(t, view, "serve")

	view.Update(press('j'))
	assert.Equal(t, 1, view.List().Selected())
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.List().Selected())

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, view.Previewing())
	out := view.View()
	assert.Contains(t, out, "serve()")
	assert.NotContains(t, out, "Results (2)")

	// Esc closes the preview before leaving the view.
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, view.Previewing())
}

func TestView_NewQuery(t *testing.T) {
	view := NewView(nil, nil, &mockCorpus{hits: testHits()})
	searchFor(t, view, "serve")

	view.Update(press('n'))

	assert.True(t, view.InputFocused())
	assert.Equal(t, "", view.Query())
}

func TestView_Index(t *testing.T) {
	tests := []struct {
		name     string
		indexErr error
		wantErr  bool
	}{
		{"success", nil, false},
		{"failure", errors.New("disk full"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := &mockCorpus{
				hits:     testHits(),
				indexErr: tt.indexErr,
				stats:    domain.CorpusStats{Files: 4, Chunks: 9, Indexed: true},
			}
			view := NewView(nil, nil, corpus)
			view.SetDimensions(100, 30)
			searchFor(t, view, "serve")

			_, cmd := view.Update(press('i'))
			require.NotNil(t, cmd)
			assert.True(t, view.statusbar.Busy())

			// Keys are ignored while the build runs.
			view.Update(press('j'))
			assert.Equal(t, 0, view.List().Selected())

			msg := cmd()
			assert.True(t, corpus.forced)
			view.Update(msg)

			if tt.wantErr {
				assert.Error(t, view.Err())
				return
			}
			assert.NoError(t, view.Err())
			assert.Contains(t, view.View(), "Indexed 4 files into 9 chunks")
		})
	}
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_ErrorOccurred(t *testing.T) {
	view := NewView(nil, nil, nil)
	err := errors.New("boom")

	view.Update(messages.ErrorOccurred{Err: err})

	assert.ErrorIs(t, view.Err(), err)
}

func TestView_Reset(t *testing.T) {
	view := NewView(nil, nil, &mockCorpus{hits: testHits()})
	searchFor(t, view, "serve")
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	view.Reset()

	assert.True(t, view.InputFocused())
	assert.False(t, view.Previewing())
	assert.Zero(t, view.List().Len())
	assert.Equal(t, "", view.Query())
	assert.NoError(t, view.Err())
}

func TestView_View_NotReady(t *testing.T) {
	view := NewView(nil, nil, nil)
	assert.Equal(t, "Initialising...", view.View())

	view.SetQuery("handler")
	view.SetDimensions(80, 24)
	out := view.View()
	assert.Contains(t, out, "Search codebase")
	assert.Contains(t, out, "No results")
}
