// Package search provides the codebase search view for the TUI.
package search

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// DefaultLimit is the number of fragments requested per search.
const DefaultLimit = 10

// View represents the search view with input, hit list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Prompt
	list      *list.HitList
	statusbar *status.Bar

	corpus driving.CorpusService
	ctx    context.Context
	limit  int

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = input mode (typing), false = results mode (navigating)
	preview    bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, corpus driving.CorpusService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewPrompt(s, "Search", "Describe the code you are looking for..."),
		list:       list.NewHitList(s),
		statusbar:  status.NewBar(s, km),
		corpus:     corpus,
		ctx:        context.Background(),
		limit:      DefaultLimit,
		width:      80,
		height:     24,
		focusInput: true,
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

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.IndexCompleted:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.statusbar.Clear()
		v.statusbar.SetMessage(fmt.Sprintf("Indexed %d files into %d chunks", msg.Stats.Files, msg.Stats.Chunks))
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

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if key.Matches(msg, v.keymap.Back) {
		if v.preview {
			v.preview = false
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if key.Matches(msg, v.keymap.Submit) {
			query := v.input.Value()
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateSearching)
			v.focusInput = false
			v.input.Blur()
			return v, v.performSearch(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	if v.statusbar.Busy() {
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keymap.Preview):
		if v.list.SelectedHit() != nil {
			v.preview = !v.preview
		}
	case key.Matches(msg, v.keymap.Up):
		v.list.MoveUp()
	case key.Matches(msg, v.keymap.Down):
		v.list.MoveDown()
	case key.Matches(msg, v.keymap.NewQuery):
		v.preview = false
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case key.Matches(msg, v.keymap.Index):
		v.statusbar.SetState(status.StateIndexing)
		return v, v.performIndex()
	}

	return v, nil
}

// performSearch runs the corpus search off the update loop.
func (v *View) performSearch(query string) tea.Cmd {
	corpus, ctx, limit := v.corpus, v.ctx, v.limit
	return func() tea.Msg {
		if corpus == nil {
			return messages.ErrorOccurred{Err: ErrNoCorpusService}
		}
		hits, err := corpus.Search(ctx, query, limit)
		return messages.SearchCompleted{Query: query, Hits: hits, Err: err}
	}
}

// performIndex rebuilds the codebase index.
func (v *View) performIndex() tea.Cmd {
	corpus, ctx := v.corpus, v.ctx
	return func() tea.Msg {
		if corpus == nil {
			return messages.ErrorOccurred{Err: ErrNoCorpusService}
		}
		if err := corpus.Index(ctx, true); err != nil {
			return messages.IndexCompleted{Err: err}
		}
		return messages.IndexCompleted{Stats: corpus.Stats()}
	}
}

// handleSearchCompleted processes search hits.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.preview = false
	v.list.SetHits(msg.Hits)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Hits))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Search codebase"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if hit := v.list.SelectedHit(); v.preview && hit != nil {
		sections = append(sections,
			v.styles.Subtitle.Render(hit.Label()),
			v.styles.Code.Render(hit.Text),
		)
	} else {
		sections = append(sections, v.list.View())
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
	v.list.SetDimensions(width, height-10) // header, input, status
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the search query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// List exposes the hit list.
func (v *View) List() *list.HitList {
	return v.list
}

// Previewing reports whether the selected fragment is shown in full.
func (v *View) Previewing() bool {
	return v.preview
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.preview = false
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetHits(nil)
	v.err = nil
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
