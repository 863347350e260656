// Package documents lists uploaded documents and deletes them together with
// their fragments in the vector index.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// ErrNoDocumentService is reported when the registry could not be opened.
var ErrNoDocumentService = errors.New("document service not available")

type mode int

const (
	modeList mode = iota
	modeDetails
	modeConfirm
)

// chrome is the number of lines around the list: title, notice, footer.
const chrome = 8

var (
	confirmYes = key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "delete"))
	confirmNo  = key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep"))
)

// View is the documents screen.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	svc    driving.DocumentService
	ctx    context.Context

	docs   []domain.Document
	cursor int
	offset int
	mode   mode

	width, height int
	loading       bool
	err           error
	notice        string
}

// NewView creates the view. Nil styles or keymap use the defaults.
func NewView(s *styles.Styles, km *keymap.KeyMap, svc driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{styles: s, keys: km, svc: svc, ctx: context.Background(), height: 24}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init reloads the listing.
func (v *View) Init() tea.Cmd {
	v.mode = modeList
	return v.reload()
}

func (v *View) reload() tea.Cmd {
	v.loading = true
	svc, ctx := v.svc, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := svc.List(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) remove(id string) tea.Cmd {
	svc, ctx := v.svc, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentDeleted{DocumentID: id, Err: ErrNoDocumentService}
		}
		n, err := svc.Delete(ctx, id)
		return messages.DocumentDeleted{DocumentID: id, Removed: n, Err: err}
	}
}

// Update handles key presses and service results.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		if v.mode == modeConfirm {
			return v, v.confirm(msg)
		}
		return v, v.navigate(msg)
	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.docs = msg.Documents
			v.cursor = min(v.cursor, max(len(v.docs)-1, 0))
			v.scroll()
		}
	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Deleted " + msg.DocumentID
		if msg.Removed != domain.DeleteCountUnknown {
			v.notice += fmt.Sprintf(" (%d fragments)", msg.Removed)
		}
		return v, v.reload()
	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) navigate(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Up):
		v.move(-1)
	case key.Matches(msg, v.keys.Down):
		v.move(1)
	case key.Matches(msg, v.keys.Select):
		switch {
		case v.Selected() == nil:
		case v.mode == modeDetails:
			v.mode = modeList
		default:
			v.mode = modeDetails
		}
	case key.Matches(msg, v.keys.Delete):
		if v.Selected() != nil {
			v.mode = modeConfirm
		}
	case key.Matches(msg, v.keys.Reload):
		v.notice = ""
		return v.reload()
	case key.Matches(msg, v.keys.Back):
		if v.mode == modeDetails {
			v.mode = modeList
			return nil
		}
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	}
	return nil
}

func (v *View) confirm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, confirmYes):
		v.mode = modeList
		if doc := v.Selected(); doc != nil {
			return v.remove(doc.ID)
		}
	case key.Matches(msg, confirmNo):
		v.mode = modeList
	}
	return nil
}

func (v *View) move(delta int) {
	next := v.cursor + delta
	if next < 0 || next >= len(v.docs) {
		return
	}
	v.cursor = next
	v.mode = modeList
	v.scroll()
}

// scroll keeps the cursor inside the visible window.
func (v *View) scroll() {
	rows := v.rows()
	switch {
	case v.cursor < v.offset:
		v.offset = v.cursor
	case v.cursor >= v.offset+rows:
		v.offset = v.cursor - rows + 1
	}
}

func (v *View) rows() int { return max(v.height-chrome, 1) }

// View renders the listing.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.docs))) + "\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.docs) == 0:
		b.WriteString(v.styles.Muted.Render("No documents uploaded. Use `codeassist document upload <file>`."))
	default:
		b.WriteString(v.list())
		switch v.mode {
		case modeDetails:
			b.WriteString("\n\n" + v.details(v.Selected()))
		case modeConfirm:
			b.WriteString("\n\n" + v.styles.Warning.Render(
				fmt.Sprintf("Delete %s and its fragments? [y/n]", v.Selected().Filename)))
		case modeList:
		}
	}

	if v.notice != "" {
		b.WriteString("\n\n" + v.styles.Success.Render(v.notice))
	}
	b.WriteString("\n\n" + v.footer())
	return b.String()
}

func (v *View) list() string {
	rows := v.rows()
	end := min(v.offset+rows, len(v.docs))

	lines := make([]string, 0, end-v.offset+1)
	for i := v.offset; i < end; i++ {
		lines = append(lines, v.row(i, &v.docs[i]))
	}
	if len(v.docs) > rows {
		lines = append(lines, "", v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.offset+1, end, len(v.docs))))
	}
	return strings.Join(lines, "\n")
}

func (v *View) row(i int, doc *domain.Document) string {
	name := doc.Filename
	if name == "" {
		name = doc.ID
	}
	w := max(v.width/2-4, 10)
	if len(name) > w {
		name = name[:w-3] + "..."
	}
	info := fmt.Sprintf("%d chunks  %s", doc.ChunkCount, humanize.Bytes(uint64(max(doc.Size, 0))))

	if i == v.cursor {
		return v.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", w, name, info))
	}
	return v.styles.Normal.Render(fmt.Sprintf("  %-*s  ", w, name)) + v.styles.Muted.Render(info)
}

func (v *View) details(doc *domain.Document) string {
	fields := []struct{ label, value string }{
		{"ID", doc.ID},
		{"Filename", doc.Filename},
		{"Chunks", humanize.Comma(int64(doc.ChunkCount))},
		{"Size", humanize.Bytes(uint64(max(doc.Size, 0)))},
		{"Uploaded", humanize.Time(doc.CreatedAt)},
		{"Stored at", doc.StoragePath},
	}
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render("Details"))
	for _, f := range fields {
		b.WriteString("\n" + v.styles.Muted.Render(fmt.Sprintf("  %-10s", f.label)) + v.styles.Normal.Render(f.value))
	}
	return b.String()
}

func (v *View) footer() string {
	bindings := []key.Binding{v.keys.Up, v.keys.Select, v.keys.Delete, v.keys.Reload, v.keys.Back}
	if v.mode == modeConfirm {
		bindings = []key.Binding{confirmYes, confirmNo}
	}
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		parts[i] = kb.Help().Key + " " + kb.Help().Desc
	}
	return v.styles.Help.Render(strings.Join(parts, " · "))
}

// SetDimensions records the terminal size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.scroll()
}

// Documents returns the loaded listing.
func (v *View) Documents() []domain.Document { return v.docs }

// Cursor returns the index of the highlighted document.
func (v *View) Cursor() int { return v.cursor }

// Selected returns the highlighted document, or nil when the list is empty.
func (v *View) Selected() *domain.Document {
	if v.cursor < len(v.docs) {
		return &v.docs[v.cursor]
	}
	return nil
}

// ShowingDetails reports whether the details pane is open.
func (v *View) ShowingDetails() bool { return v.mode == modeDetails }

// Confirming reports whether a delete is waiting for y/n.
func (v *View) Confirming() bool { return v.mode == modeConfirm }

// Err returns the last failure.
func (v *View) Err() error { return v.err }
