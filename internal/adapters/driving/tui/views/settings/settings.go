// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// ErrNoSettingsService indicates that no settings service was provided.
var ErrNoSettingsService = errors.New("settings service not available")

// Section tracks which settings section is active.
type Section int

const (
	SectionOverview Section = iota
	SectionEmbedding
	SectionLLM
	SectionBackend
	SectionKeys
)

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyTab   = "tab"
)

// overviewItems are the entries of the overview, in order.
var overviewItems = []Section{SectionEmbedding, SectionLLM, SectionBackend, SectionKeys}

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	settings *domain.AppSettings
	err      error
	notice   string

	section      Section
	selected     int // selection within current section
	focusedField int // 1 when the text input has focus

	// apiKeyInput collects a key for cloud providers.
	apiKeyInput textinput.Model

	// valueInput edits the value of a single setting key.
	valueInput textinput.Model

	keys   []string
	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	apiKeyInput := textinput.New()
	apiKeyInput.Placeholder = "Enter API key"
	apiKeyInput.EchoMode = textinput.EchoPassword
	apiKeyInput.CharLimit = 256

	valueInput := textinput.New()
	valueInput.Placeholder = "New value"
	valueInput.CharLimit = 512

	v := &View{
		styles:          s,
		settingsService: settingsService,
		section:         SectionOverview,
		apiKeyInput:     apiKeyInput,
		valueInput:      valueInput,
	}
	if settingsService != nil {
		v.keys = settingsService.Keys()
	}
	return v
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads current settings.
func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := svc.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// setValues stores key/value pairs in order and reports the first key.
func (v *View) setValues(pairs ...string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			if err := svc.Set(pairs[i], pairs[i+1]); err != nil {
				return messages.SettingsSaved{Key: pairs[i], Err: err}
			}
		}
		return messages.SettingsSaved{Key: pairs[0]}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.settings = msg.Settings
			v.err = nil
		}
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.notice = fmt.Sprintf("Saved %s", msg.Key)
		v.backToOverview()
		return v, v.loadSettings()

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles key presses based on current section.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == "esc" {
		if v.section == SectionOverview {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		v.backToOverview()
		return v, nil
	}

	switch v.section {
	case SectionOverview:
		return v.handleOverviewKeys(msg)
	case SectionEmbedding:
		return v.handleProviderKeys(msg, domain.AllEmbeddingProviders(), "embedding")
	case SectionLLM:
		return v.handleProviderKeys(msg, domain.AllLLMProviders(), "llm")
	case SectionBackend:
		return v.handleBackendKeys(msg)
	case SectionKeys:
		return v.handleSettingKeys(msg)
	}

	return v, nil
}

func (v *View) handleOverviewKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		v.moveUp()
	case keyDown, "j":
		v.moveDown(len(overviewItems))
	case keyEnter:
		v.notice = ""
		v.section = overviewItems[v.selected]
		v.selected = v.currentIndex()
	}
	return v, nil
}

// handleProviderKeys picks an AI provider. prefix is the settings key
// namespace, "embedding" or "llm".
func (v *View) handleProviderKeys(msg tea.KeyMsg, providers []domain.AIProvider, prefix string) (*View, tea.Cmd) {
	save := func(p domain.AIProvider, apiKey string) tea.Cmd {
		models := domain.DefaultEmbeddingModels()
		if prefix == "llm" {
			models = domain.DefaultLLMModels()
		}
		pairs := []string{prefix + ".provider", string(p), prefix + ".model", models[p]}
		if apiKey != "" {
			pairs = append(pairs, prefix+".api_key", apiKey)
		}
		return v.setValues(pairs...)
	}

	if v.focusedField == 1 {
		switch msg.String() {
		case keyTab, "shift+tab":
			v.focusedField = 0
			v.apiKeyInput.Blur()
			return v, nil
		case keyEnter:
			return v, save(providers[v.selected], v.apiKeyInput.Value())
		}
		var cmd tea.Cmd
		v.apiKeyInput, cmd = v.apiKeyInput.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "up", "k":
		v.moveUp()
	case keyDown, "j":
		v.moveDown(len(providers))
	case keyTab, keyEnter:
		provider := providers[v.selected]
		if provider.RequiresAPIKey() {
			v.focusedField = 1
			return v, v.apiKeyInput.Focus()
		}
		if msg.String() == keyEnter {
			return v, save(provider, "")
		}
	}
	return v, nil
}

func (v *View) handleBackendKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	backends := domain.AllVectorBackends()

	switch msg.String() {
	case "up", "k":
		v.moveUp()
	case keyDown, "j":
		v.moveDown(len(backends))
	case keyEnter:
		return v, v.setValues("vector_index.backend", string(backends[v.selected]))
	}
	return v, nil
}

func (v *View) handleSettingKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	if len(v.keys) == 0 {
		return v, nil
	}

	if v.focusedField == 1 {
		switch msg.String() {
		case keyTab, "shift+tab":
			v.focusedField = 0
			v.valueInput.Blur()
			return v, nil
		case keyEnter:
			return v, v.setValues(v.keys[v.selected], strings.TrimSpace(v.valueInput.Value()))
		}
		var cmd tea.Cmd
		v.valueInput, cmd = v.valueInput.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "up", "k":
		v.moveUp()
	case keyDown, "j":
		v.moveDown(len(v.keys))
	case keyEnter, keyTab:
		v.focusedField = 1
		v.valueInput.SetValue("")
		return v, v.valueInput.Focus()
	}
	return v, nil
}

func (v *View) moveUp() {
	if v.selected > 0 {
		v.selected--
	}
}

func (v *View) moveDown(n int) {
	if v.selected < n-1 {
		v.selected++
	}
}

func (v *View) backToOverview() {
	v.section = SectionOverview
	v.selected = 0
	v.focusedField = 0
	v.apiKeyInput.SetValue("")
	v.apiKeyInput.Blur()
	v.valueInput.SetValue("")
	v.valueInput.Blur()
}

// currentIndex returns the position of the stored choice in a picker.
func (v *View) currentIndex() int {
	if v.settings == nil {
		return 0
	}
	switch v.section {
	case SectionEmbedding:
		return indexOf(domain.AllEmbeddingProviders(), v.settings.Embedding.Provider)
	case SectionLLM:
		return indexOf(domain.AllLLMProviders(), v.settings.LLM.Provider)
	case SectionBackend:
		return indexOf(domain.AllVectorBackends(), v.settings.VectorIndex.Backend)
	case SectionOverview, SectionKeys:
	}
	return 0
}

func indexOf[T comparable](items []T, want T) int {
	for i, item := range items {
		if item == want {
			return i
		}
	}
	return 0
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	switch v.section {
	case SectionOverview:
		b.WriteString(v.renderOverview())
	case SectionEmbedding:
		b.WriteString(v.renderProviders("Select Embedding Provider", domain.AllEmbeddingProviders(),
			v.settings.Embedding.Provider, domain.DefaultEmbeddingModels()))
	case SectionLLM:
		b.WriteString(v.renderProviders("Select LLM Provider", domain.AllLLMProviders(),
			v.settings.LLM.Provider, domain.DefaultLLMModels()))
	case SectionBackend:
		b.WriteString(v.renderBackends())
	case SectionKeys:
		b.WriteString(v.renderKeys())
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderOverview() string {
	var b strings.Builder

	s := v.settings
	items := []struct {
		label  string
		value  string
		status string
	}{
		{
			label:  "Embedding Provider",
			value:  fmt.Sprintf("%s (%s)", s.Embedding.Provider.Description(), s.Embedding.Model),
			status: v.configuredStatus(s.Embedding.IsConfigured()),
		},
		{
			label:  "LLM Provider",
			value:  fmt.Sprintf("%s (%s)", s.LLM.Provider.Description(), s.LLM.Model),
			status: v.configuredStatus(s.LLM.IsConfigured()),
		},
		{
			label: "Vector Index",
			value: s.VectorIndex.Backend.Description(),
		},
		{
			label: "Edit a setting",
			value: fmt.Sprintf("%d keys", len(v.keys)),
		},
	}

	for i, item := range items {
		indicator := "  "
		if i == v.selected {
			indicator = "> "
		}

		line := fmt.Sprintf("%s%s: %s", indicator, item.label, item.value)
		if item.status != "" {
			line += " " + item.status
		}

		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf(
		"Codebase %s  chunks %d/%d  top_k %d  data %s",
		s.Corpus.Root, s.Chunking.MaxChars, s.Chunking.OverlapChars, s.Retrieval.TopK, s.DataDir)))
	b.WriteString("\n")

	if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) configuredStatus(ok bool) string {
	if ok {
		return v.styles.Success.Render("[configured]")
	}
	return v.styles.Warning.Render("[needs API key]")
}

func (v *View) renderProviders(
	title string, providers []domain.AIProvider, current domain.AIProvider, models map[domain.AIProvider]string,
) string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	for i, provider := range providers {
		selected := i == v.selected && v.focusedField == 0
		b.WriteString(v.renderChoice(selected, provider.Description(), provider == current))
		if model, ok := models[provider]; ok {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("    Model: %s", model)))
			b.WriteString("\n")
		}
	}

	if providers[v.selected].RequiresAPIKey() {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render("API Key:"))
		b.WriteString("\n")
		b.WriteString(v.apiKeyInput.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderBackends() string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render("Select Vector Index"))
	b.WriteString("\n\n")

	for i, backend := range domain.AllVectorBackends() {
		b.WriteString(v.renderChoice(i == v.selected, backend.Description(), backend == v.settings.VectorIndex.Backend))
	}
	b.WriteString(v.styles.Muted.Render("\nUnreachable backends fall back to memory at startup."))
	b.WriteString("\n")

	return b.String()
}

func (v *View) renderKeys() string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render("Edit a setting"))
	b.WriteString("\n\n")

	if len(v.keys) == 0 {
		b.WriteString(v.styles.Muted.Render("No settable keys"))
		b.WriteString("\n")
		return b.String()
	}

	// Keep the selection inside a window that fits the terminal.
	window := max(v.height-12, 5)
	start := max(v.selected-window+1, 0)
	end := min(start+window, len(v.keys))
	for i := start; i < end; i++ {
		b.WriteString(v.renderChoice(i == v.selected && v.focusedField == 0, v.keys[i], false))
	}

	if v.focusedField == 1 {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render(v.keys[v.selected] + " ="))
		b.WriteString("\n")
		b.WriteString(v.valueInput.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderChoice(selected bool, label string, current bool) string {
	indicator := "  "
	if selected {
		indicator = "> "
	}
	suffix := ""
	if current {
		suffix = v.styles.Success.Render(" (current)")
	}
	line := indicator + label + suffix
	if selected {
		return v.styles.Selected.Render(line) + "\n"
	}
	return v.styles.Normal.Render(line) + "\n"
}

func (v *View) renderHelp() string {
	switch v.section {
	case SectionOverview:
		return v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back")
	case SectionBackend:
		return v.styles.Help.Render("[j/k] navigate  [enter] select  [esc] back")
	case SectionEmbedding, SectionLLM, SectionKeys:
		if v.focusedField == 1 {
			return v.styles.Help.Render("[tab] back to list  [enter] save  [esc] back")
		}
		return v.styles.Help.Render("[j/k] navigate  [enter] select  [esc] back")
	default:
		return ""
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Section returns the active section.
func (v *View) Section() Section {
	return v.section
}

// Selected returns the selection within the active section.
func (v *View) Selected() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.backToOverview()
	v.err = nil
	v.notice = ""
}
