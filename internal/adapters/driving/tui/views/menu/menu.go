// Package menu is the start screen: corpus summary plus one entry per view.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// Item is one menu entry. Shortcut jumps straight to it.
type Item struct {
	Label       string
	Description string
	Shortcut    rune
	View        messages.ViewType
	Quit        bool

	// Disabled entries are shown dimmed with Reason and cannot be opened.
	Disabled bool
	Reason   string
}

// View is the menu screen.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap

	items    []Item
	selected int
	stats    *domain.CorpusStats
	ready    bool
}

// NewView creates the menu. Nil arguments use the defaults.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keys:   km,
		items: []Item{
			{Label: "Search", Shortcut: 's', Description: "find code fragments by similarity", View: messages.ViewSearch},
			{Label: "Ask", Shortcut: 'a', Description: "answer a question from code or documents", View: messages.ViewAsk},
			{Label: "Generate", Shortcut: 'g', Description: "draft file changes for an instruction", View: messages.ViewGenerate},
			{Label: "Documents", Shortcut: 'd', Description: "manage uploaded documents", View: messages.ViewDocuments},
			{Label: "Settings", Shortcut: 'c', Description: "models, chunking and storage", View: messages.ViewSettings},
			{Label: "Help", Shortcut: '?', View: messages.ViewHelp},
			{Label: "Quit", Shortcut: 'q', Quit: true},
		},
	}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd { return nil }

// Disable greys out the entry for view and shows reason beside it.
func (v *View) Disable(view messages.ViewType, reason string) {
	for i := range v.items {
		if !v.items[i].Quit && v.items[i].View == view {
			v.items[i].Disabled = true
			v.items[i].Reason = reason
		}
	}
}

// Update moves the cursor and opens entries.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Up):
			v.selected = max(v.selected-1, 0)
		case key.Matches(msg, v.keys.Down):
			v.selected = min(v.selected+1, len(v.items)-1)
		case key.Matches(msg, v.keys.Select):
			return v, v.open(v.selected)
		case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
			for i, item := range v.items {
				if item.Shortcut == msg.Runes[0] {
					v.selected = i
					return v, v.open(i)
				}
			}
		}
	}
	return v, nil
}

func (v *View) open(i int) tea.Cmd {
	item := v.items[i]
	switch {
	case item.Quit:
		return tea.Quit
	case item.Disabled:
		return nil
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("codeassist") + "\n\n")
	b.WriteString(v.styles.Muted.Render(v.corpusLine()) + "\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("%c  %-10s", item.Shortcut, item.Label)
		cursor := "  "
		switch {
		case item.Disabled:
			label = v.styles.Muted.Render(label)
		case i == v.selected:
			label = v.styles.Subtitle.Render(label)
		default:
			label = v.styles.Normal.Render(label)
		}
		if i == v.selected {
			cursor = "> "
		}

		desc := item.Description
		if item.Disabled {
			desc = item.Reason
		}
		b.WriteString(cursor + label)
		if desc != "" {
			b.WriteString(" " + v.styles.Muted.Render(desc))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + v.styles.Help.Render("↑/↓ move  enter open  letter jumps"))
	return b.String()
}

func (v *View) corpusLine() string {
	if v.stats == nil || !v.stats.Indexed {
		return "Codebase not indexed yet, run Search and press i"
	}
	line := fmt.Sprintf("%s: %s files, %s chunks in %s",
		v.stats.Source, humanize.Comma(int64(v.stats.Files)), humanize.Comma(int64(v.stats.Chunks)), v.stats.Backend)
	if !v.stats.FinishedAt.IsZero() {
		line += ", built " + humanize.Time(v.stats.FinishedAt)
	}
	return line
}

// SetCorpusStats updates the summary under the title.
func (v *View) SetCorpusStats(stats domain.CorpusStats) {
	v.stats = &stats
}

// SetDimensions marks the view ready to render.
func (v *View) SetDimensions(_, _ int) {
	v.ready = true
}

// Selected returns the cursor position.
func (v *View) Selected() int { return v.selected }

// Items returns the entries.
func (v *View) Items() []Item { return v.items }
