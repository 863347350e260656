package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/views/generate"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/views/settings"
)

// App routes messages between the menu and the views. Only the active view
// receives key presses; completion messages go to the view that started them.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap

	menuView      *menu.View
	searchView    *search.View
	askView       *ask.View
	generateView  *generate.View
	documentsView *documents.View
	settingsView  *settings.View

	currentView messages.ViewType

	// err is the last failure reported by any view.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keys:          km,
		menuView:      menu.NewView(s, km),
		searchView:    search.NewView(s, km, ports.Corpus),
		askView:       ask.NewView(s, km, ports.Query),
		generateView:  generate.NewView(s, km, ports.Generation),
		documentsView: documents.NewView(s, km, ports.Document),
		settingsView:  settings.NewView(s, ports.Settings),
		currentView:   messages.ViewMenu,
	}
	a.menuView.SetCorpusStats(ports.Corpus.Stats())
	if ports.Query == nil {
		a.menuView.Disable(messages.ViewAsk, "needs an LLM, see Settings")
	}
	if ports.Generation == nil {
		a.menuView.Disable(messages.ViewGenerate, "needs an LLM, see Settings")
	}
	if ports.Document == nil {
		a.menuView.Disable(messages.ViewDocuments, "document store unavailable")
	}
	return a, nil
}

// WithContext sets the context for the app and every view that calls a service.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.askView.WithContext(ctx)
	a.generateView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("codeassist"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if key.Matches(msg, a.keys.Back) {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		a.err = nil
		switch msg.View {
		case messages.ViewSearch:
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewAsk:
			a.askView.Reset()
			return a, a.askView.Init()
		case messages.ViewGenerate:
			a.generateView.Reset()
			return a, a.generateView.Init()
		case messages.ViewDocuments:
			return a, a.documentsView.Init()
		case messages.ViewSettings:
			a.settingsView.Reset()
			return a, a.settingsView.Init()
		case messages.ViewMenu:
			a.menuView.SetCorpusStats(a.ports.Corpus.Stats())
		case messages.ViewHelp:
		}
		return a, nil

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.IndexCompleted:
		if msg.Err == nil {
			a.menuView.SetCorpusStats(msg.Stats)
		}
		a.err = msg.Err
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.AnswerCompleted:
		a.askView, cmd = a.askView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.GenerationCompleted:
		a.generateView, cmd = a.generateView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.err = a.documentsView.Err()
		return a, cmd

	case messages.SettingsLoaded, messages.SettingsSaved:
		a.settingsView, cmd = a.settingsView.Update(msg)
		a.err = a.settingsView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.forward(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward hands a message to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewGenerate:
		a.generateView, cmd = a.generateView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewGenerate:
		return a.generateView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewSettings:
		return a.settingsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
	}
	return a.menuView.View()
}

// viewHelp lists the key bindings of every view.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help") + "\n")
	for _, sec := range a.keys.Sections() {
		b.WriteString("\n" + a.styles.Subtitle.Render(sec.Title) + "\n")
		for _, kb := range sec.Bindings {
			h := kb.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n" + a.styles.Help.Render("esc back to menu"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.generateView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
}
