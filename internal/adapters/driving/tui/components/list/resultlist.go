// Package list renders retrieved fragments as a scrollable list.
package list

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// linesPerHit is the label line, the preview line and a spacer.
const linesPerHit = 3

// HitList shows search hits with their score and a one-line preview.
type HitList struct {
	styles *styles.Styles
	hits   []domain.SearchHit
	cursor int
	offset int

	width, height int
}

// NewHitList returns an empty list sized for an 80x10 area.
func NewHitList(s *styles.Styles) *HitList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &HitList{styles: s, width: 80, height: 10}
}

// SetHits replaces the hits and moves the cursor to the best one.
func (l *HitList) SetHits(hits []domain.SearchHit) {
	l.hits = hits
	l.cursor, l.offset = 0, 0
}

func (l *HitList) Hits() []domain.SearchHit { return l.hits }

func (l *HitList) Len() int { return len(l.hits) }

// Selected returns the cursor index.
func (l *HitList) Selected() int { return l.cursor }

// SetSelected moves the cursor; out of range indexes are ignored.
func (l *HitList) SetSelected(i int) {
	if i >= 0 && i < len(l.hits) {
		l.cursor = i
		l.follow()
	}
}

// SelectedHit returns the hit under the cursor, or nil when empty.
func (l *HitList) SelectedHit() *domain.SearchHit {
	if l.cursor >= len(l.hits) {
		return nil
	}
	return &l.hits[l.cursor]
}

func (l *HitList) MoveUp()   { l.SetSelected(l.cursor - 1) }
func (l *HitList) MoveDown() { l.SetSelected(l.cursor + 1) }

// SetDimensions sets the area the list may use.
func (l *HitList) SetDimensions(width, height int) {
	l.width, l.height = width, height
	l.follow()
}

func (l *HitList) visible() int {
	// Two lines go to the "Results (n)" header.
	return max((l.height-2)/linesPerHit, 1)
}

// follow scrolls just enough to keep the cursor on screen.
func (l *HitList) follow() {
	n := l.visible()
	switch {
	case l.cursor < l.offset:
		l.offset = l.cursor
	case l.cursor >= l.offset+n:
		l.offset = l.cursor - n + 1
	}
}

// View renders the visible window of hits.
func (l *HitList) View() string {
	if len(l.hits) == 0 {
		return l.styles.Muted.Render("No results")
	}

	end := min(l.offset+l.visible(), len(l.hits))
	lines := []string{l.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(l.hits))), ""}
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.row(i))
	}
	return strings.Join(lines, "\n")
}

func (l *HitList) row(i int) string {
	hit := &l.hits[i]
	w := max(l.width-20, 10)
	label := ansi.Truncate(hit.Label(), w, "...")
	score := fmt.Sprintf("%.3f", hit.Score)

	var head string
	if i == l.cursor {
		head = l.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", w, label, score))
	} else {
		head = l.styles.Normal.Render(fmt.Sprintf("  %-*s  ", w, label)) + l.styles.ScoreStyle(hit.Score).Render(score)
	}

	preview := ansi.Truncate(strings.Join(strings.Fields(hit.Text), " "), max(l.width-6, 20), "...")
	return head + "\n" + l.styles.Muted.Render("    "+preview)
}
