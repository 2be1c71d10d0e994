package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/njyeung/threads/backend"
	"github.com/njyeung/threads/dom"
	"github.com/njyeung/threads/thread"
)

const (
	loadTimeout  = 30 * time.Second
	headerHeight = 2
)

// Messages
type (
	pageLoadedMsg struct{ doc *dom.Document }
	pageErrorMsg  struct{ err error }

	// completionMsg carries a completion scheduled by the backend; running
	// it inside Update keeps every tree mutation on the event loop
	completionMsg struct{ fn func() }
)

// State represents the app state
type state int

const (
	stateLoading state = iota
	stateBrowsing
	stateError
)

// Config is what the model needs from the command line and settings file
type Config struct {
	URL          string
	Settings     backend.Settings
	SettingsPath string
	Log          zerolog.Logger
}

// Model is the Bubble Tea model
type Model struct {
	state   state
	backend backend.Backend
	page    *thread.Page
	cfg     Config
	log     zerolog.Logger

	width    int
	height   int
	spinner  spinner.Model
	viewport viewport.Model
	editor   textarea.Model
	help     help.Model
	keys     keyMap
	err      error
	status   string

	lines   []line
	focus   *dom.Element
	editing bool
}

// NewModel creates a new TUI model
func NewModel(b backend.Backend, cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ed := textarea.New()
	ed.Placeholder = "write a reply"
	ed.ShowLineNumbers = false
	ed.Prompt = ""
	ed.CharLimit = 0
	ed.SetHeight(4)

	h := help.New()
	h.ShowAll = cfg.Settings.ShowHelp

	return Model{
		state:    stateLoading,
		backend:  b,
		cfg:      cfg,
		log:      cfg.Log,
		spinner:  s,
		viewport: viewport.New(0, 0),
		editor:   ed,
		help:     h,
		keys:     defaultKeyMap(),
		status:   "Loading " + cfg.URL,
	}
}

// ProgramScheduler delivers backend completions into p's event loop
func ProgramScheduler(p *tea.Program) backend.Scheduler {
	return backend.SchedulerFunc(func(fn func()) {
		p.Send(completionMsg{fn: fn})
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadPage,
	)
}

func (m Model) loadPage() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	doc, err := m.backend.Load(ctx, m.cfg.URL)
	if err != nil {
		return pageErrorMsg{err}
	}
	return pageLoadedMsg{doc}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateBrowsing {
			return m.updateBrowsing(msg)
		}
		if key.Matches(msg, m.keys.Quit) {
			return m.quit()
		}
		return m, nil

	case tea.MouseMsg:
		if m.state == stateBrowsing && m.cfg.Settings.Mouse {
			return m.updateMouse(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pageLoadedMsg:
		page, err := thread.Bind(msg.doc, m.backend, m.log)
		if err != nil {
			m.log.Error().Err(err).Str("url", m.cfg.URL).Msg("could not bind page")
			m.state = stateError
			m.err = err
			return m, nil
		}
		m.page = page
		m.state = stateBrowsing
		m.status = ""
		m.layout()
		m.refresh()
		return m, nil

	case pageErrorMsg:
		m.log.Error().Err(msg.err).Str("url", m.cfg.URL).Msg("could not load page")
		m.state = stateError
		m.err = msg.err
		return m, nil

	case completionMsg:
		msg.fn()
		m.refresh()
		return m, nil
	}

	// cursor blink and friends
	if m.editing {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.backend != nil {
		m.backend.Close()
	}
	return m, tea.Quit
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch {
		case msg.String() == "ctrl+c":
			return m.quit()
		case key.Matches(msg, m.keys.Leave):
			m.stopEditing()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			m.submitEditor()
			return m, nil
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		m.focus.SetValue(m.editor.Value())
		m.refresh()
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.toggleHelp()
	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.Activate):
		return m.activate(m.focus)
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.SetYOffset(m.viewport.YOffset + max(m.viewport.Height/2, 1))
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.SetYOffset(m.viewport.YOffset - max(m.viewport.Height/2, 1))
	}
	return m, nil
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Action == tea.MouseActionMotion:
		el := m.hit(msg.X, msg.Y)
		if el == nil {
			el = m.page.Doc.Root()
		}
		m.page.Doc.Hover(el)
		m.refresh()
		return m, nil

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		el := m.hit(msg.X, msg.Y)
		if el == nil || !dom.Focusable(el) {
			return m, nil
		}
		m.focus = el
		return m.activate(el)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// activate clicks el, or submits its form when el is a submit control.
// When the page moves focus to a text field, editing starts there.
func (m Model) activate(el *dom.Element) (tea.Model, tea.Cmd) {
	if el == nil || m.page == nil {
		return m, nil
	}
	if m.editing && el != m.focus {
		m.stopEditing()
	}
	if isTextField(el) {
		cmd := m.startEditing(el)
		return m, cmd
	}

	doc := m.page.Doc
	before := doc.Focused()
	if form := dom.Form(el); form != nil && isSubmit(el) {
		dom.Dispatch(form, dom.Submit)
	} else {
		dom.Dispatch(el, dom.Click)
	}

	if f := doc.Focused(); f != nil && f != before && isTextField(f) {
		cmd := m.startEditing(f)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m *Model) startEditing(el *dom.Element) tea.Cmd {
	m.focus = el
	m.editing = true
	m.editor.SetWidth(max(m.viewport.Width-indentOf(el)-4, 8))
	m.editor.SetValue(el.Value())
	cmd := m.editor.Focus()
	m.refresh()
	m.scrollToFocus()
	return cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.editor.Blur()
}

func (m *Model) submitEditor() {
	el := m.focus
	el.SetValue(m.editor.Value())
	m.stopEditing()
	if form := dom.Form(el); form != nil {
		dom.Dispatch(form, dom.Submit)
	}
	m.refresh()
}

func (m *Model) moveFocus(delta int) {
	if m.page == nil {
		return
	}
	list := focusables(m.page.Doc)
	if len(list) == 0 {
		return
	}
	i := -1
	for j, el := range list {
		if el == m.focus {
			i = j
			break
		}
	}
	switch {
	case i < 0 && delta > 0:
		i = 0
	case i < 0:
		i = len(list) - 1
	default:
		i = (i + delta + len(list)) % len(list)
	}

	m.focus = list[i]
	// keyboard focus counts as hovering, so hover-gated controls show up
	m.page.Doc.Hover(m.focus)
	m.refresh()
	m.scrollToFocus()
}

func (m *Model) toggleHelp() {
	m.help.ShowAll = !m.help.ShowAll
	m.cfg.Settings.ShowHelp = m.help.ShowAll
	if m.cfg.SettingsPath != "" {
		if err := backend.SaveSettings(m.cfg.SettingsPath, m.cfg.Settings); err != nil {
			m.log.Error().Err(err).Msg("could not save settings")
		}
	}
	m.layout()
	m.refresh()
}

func (m *Model) layout() {
	m.help.Width = m.width
	footer := 1 + lipgloss.Height(m.help.View(m.keys))
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-headerHeight-footer, 1)
}

// refresh re-renders the document into the viewport
func (m *Model) refresh() {
	if m.page == nil || m.width == 0 {
		return
	}
	doc := m.page.Doc
	if m.focus != nil && (!doc.Contains(m.focus) || !reachable(m.focus)) {
		if m.editing {
			m.stopEditing()
		}
		m.focus = nil
	}

	var editing *dom.Element
	editor := ""
	if m.editing {
		editing = m.focus
		editor = m.editor.View()
	}
	m.lines = renderDocument(doc, m.viewport.Width, m.focus, editing, editor)

	rows := make([]string, len(m.lines))
	for i, l := range m.lines {
		rows[i] = l.text
	}
	m.viewport.SetContent(strings.Join(rows, "\n"))
}

func (m *Model) scrollToFocus() {
	row := -1
	for i, l := range m.lines {
		if l.el == m.focus {
			row = i
			break
		}
		for _, s := range l.spans {
			if s.el == m.focus {
				row = i
				break
			}
		}
		if row >= 0 {
			break
		}
	}
	if row < 0 {
		return
	}
	switch {
	case row < m.viewport.YOffset:
		m.viewport.SetYOffset(row)
	case row >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(row - m.viewport.Height + 1)
	}
}

// hit maps a screen cell to the element rendered there
func (m Model) hit(x, y int) *dom.Element {
	row := y - headerHeight + m.viewport.YOffset
	if y < headerHeight || row < 0 || row >= len(m.lines) {
		return nil
	}
	return m.lines[row].target(x)
}

func isTextField(el *dom.Element) bool {
	switch el.Tag {
	case "textarea":
		return true
	case "input":
		typ, _ := el.Attr("type")
		switch strings.ToLower(typ) {
		case "", "text", "search", "email", "url":
			return true
		}
	}
	return false
}

func isSubmit(el *dom.Element) bool {
	typ, _ := el.Attr("type")
	typ = strings.ToLower(typ)
	switch el.Tag {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit"
	}
	return false
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case stateLoading:
		return m.viewLoading()
	case stateError:
		return m.viewError()
	case stateBrowsing:
		return m.viewBrowsing()
	default:
		return ""
	}
}
