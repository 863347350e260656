// Package status renders the one-line footer shared by the TUI views.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
)

// State is what the owning view is doing.
type State string

const (
	StateReady      State = "ready"
	StateSearching  State = "searching"
	StateThinking   State = "thinking"
	StateGenerating State = "generating"
	StateIndexing   State = "indexing"
	StateError      State = "error"
	StateResults    State = "results"
)

// busyLabels are shown while a backend call is in flight.
var busyLabels = map[State]string{
	StateSearching:  "Searching",
	StateThinking:   "Asking the model",
	StateGenerating: "Generating code",
	StateIndexing:   "Indexing codebase",
}

const hintSeparator = " · "

// Bar shows the view's activity on the left and key hints on the right.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	now    func() time.Time

	state   State
	started time.Time
	message string
	hits    int
	width   int
}

// NewBar creates a status bar. Nil arguments fall back to the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, now: time.Now, state: StateReady, width: 80}
}

// SetState switches activity. Entering a busy state restarts the elapsed clock.
func (b *Bar) SetState(state State) {
	if _, busy := busyLabels[state]; busy && state != b.state {
		b.started = b.now()
	}
	b.state = state
}

// State returns the current activity.
func (b *Bar) State() State { return b.state }

// Busy reports whether a backend call is in flight.
func (b *Bar) Busy() bool {
	_, ok := busyLabels[b.state]
	return ok
}

// SetMessage sets the note shown when idle or the detail of an error.
func (b *Bar) SetMessage(message string) { b.message = message }

// Message returns the current note.
func (b *Bar) Message() string { return b.message }

// SetResultCount records how many hits the last search returned.
func (b *Bar) SetResultCount(n int) { b.hits = n }

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) { b.width = width }

// Clear returns to the idle state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.hits = 0
	b.started = time.Time{}
}

// View renders the bar padded to its width.
func (b *Bar) View() string {
	left, right := b.activity(), b.hints()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) activity() string {
	if label, ok := busyLabels[b.state]; ok {
		elapsed := b.now().Sub(b.started).Truncate(time.Second)
		return b.styles.Warning.Render(fmt.Sprintf("%s... %s", label, elapsed))
	}

	switch {
	case b.state == StateError && b.message != "":
		return b.styles.Error.Render("Error: " + b.message)
	case b.state == StateError:
		return b.styles.Error.Render("Error")
	case b.hits == 1:
		return b.styles.Normal.Render("1 result")
	case b.hits > 1:
		return b.styles.Normal.Render(fmt.Sprintf("%d results", b.hits))
	case b.message != "":
		return b.styles.Success.Render(b.message)
	}
	return b.styles.Muted.Render("Ready")
}

func (b *Bar) hints() string {
	bindings := b.keymap.ShortHelp()
	if b.state == StateResults && b.hits > 0 {
		bindings = b.keymap.ResultsHelp()
	}

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return b.styles.Muted.Render(strings.Join(parts, hintSeparator))
}
