package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/tasks"
)

const (
	maxPanelWidth  = 64
	maxPanelHeight = 24
	minPanelWidth  = 24
	chromeLines    = 4
)

// PostFunc delivers a signal to the coordinator.
type PostFunc func(tasks.Signal) bool

// Model is the overlay's bubbletea state. Surface commands arrive as [Msg] values; key presses
// are turned into signals and posted back, never applied locally.
type Model struct {
	post      PostFunc
	keys      keyMap
	help      help.Model
	viewport  viewport.Model
	visible   bool
	track     *models.Track
	lyrics    string
	indicator tasks.Indicator
	position  [2]float64
	width     int
	height    int
}

// NewModel creates the overlay model. position is the panel offset in terminal cells.
func NewModel(post PostFunc, position [2]float64) *Model {
	vp := viewport.New(maxPanelWidth-4, maxPanelHeight-chromeLines)
	return &Model{
		post:     post,
		keys:     newKeyMap(),
		help:     help.New(),
		viewport: vp,
		visible:  true,
		position: position,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case Msg:
		m.apply(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m, nil
}

func (m *Model) apply(msg Msg) {
	switch msg.kind {
	case MsgShow:
		m.visible = true
	case MsgHide:
		m.visible = false
	case MsgTrack:
		track := msg.data.(models.Track)
		m.track = &track
	case MsgLyrics:
		m.lyrics = msg.data.(string)
		m.refreshContent()
		m.viewport.GotoTop()
	case MsgIndicator:
		m.indicator = msg.data.(tasks.Indicator)
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.send(tasks.QuitSignal())
	case key.Matches(msg, m.keys.toggle):
		return m, m.send(tasks.ToggleVisibilitySignal())
	case key.Matches(msg, m.keys.auth):
		return m, m.send(tasks.AuthenticateRequestedSignal())
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		return m, m.move(-1, 0)
	case key.Matches(msg, m.keys.moveRight):
		return m, m.move(1, 0)
	case key.Matches(msg, m.keys.moveUp):
		return m, m.move(0, -1)
	case key.Matches(msg, m.keys.moveDown):
		return m, m.move(0, 1)
	}

	if !m.visible {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// send posts sig from a command so the program loop never waits on the coordinator queue.
func (m *Model) send(sig tasks.Signal) tea.Cmd {
	if m.post == nil {
		return nil
	}
	return func() tea.Msg {
		m.post(sig)
		return nil
	}
}

func (m *Model) move(dx, dy int) tea.Cmd {
	x, y := m.clampedOffset()
	m.position = [2]float64{float64(x + dx), float64(y + dy)}
	x, y = m.clampedOffset()
	m.position = [2]float64{float64(x), float64(y)}
	return m.send(tasks.WindowMovedSignal(m.position[0], m.position[1]))
}

func (m *Model) panelSize() (int, int) {
	w, h := maxPanelWidth, maxPanelHeight
	if m.width > 0 {
		w = max(min(w, m.width-2), minPanelWidth)
	}
	if m.height > 0 {
		h = max(min(h, m.height-3), chromeLines+1)
	}
	return w, h
}

// clampedOffset keeps the panel inside the terminal.
func (m *Model) clampedOffset() (int, int) {
	x, y := int(m.position[0]), int(m.position[1])
	if m.width == 0 || m.height == 0 {
		return 0, 0
	}
	w, h := m.panelSize()
	x = max(min(x, m.width-w-2), 0)
	y = max(min(y, m.height-h-3), 0)
	return x, y
}

func (m *Model) resize() {
	w, h := m.panelSize()
	m.viewport.Width = w - 4
	m.viewport.Height = h - chromeLines
	m.refreshContent()
}

func (m *Model) refreshContent() {
	m.viewport.SetContent(styles.lyrics.Width(m.viewport.Width).Render(m.lyrics))
}

func (m *Model) View() string {
	x, y := m.clampedOffset()
	place := lipgloss.NewStyle().MarginLeft(x).MarginTop(y)

	status := m.renderIndicator()
	helpView := styles.help.Render(m.help.View(m.keys))

	if !m.visible {
		return place.Render(status) + "\n" + helpView
	}

	w, _ := m.panelSize()
	var b strings.Builder
	b.WriteString(m.renderTitle() + "\n\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(status)

	return place.Render(styles.panel.Width(w-2).Render(b.String())) + "\n" + helpView
}

func (m *Model) renderTitle() string {
	if m.track == nil {
		return styles.artist.Render("Nothing playing")
	}
	title := styles.title.Render(m.track.Name)
	if artists := m.track.ArtistLine(); artists != "" {
		title += styles.artist.Render(" · " + artists)
	}
	return title
}

func (m *Model) renderIndicator() string {
	auth := styles.ok.Render("● Spotify")
	if !m.indicator.Authenticated {
		auth = styles.err.Render("○ Spotify")
	}

	parts := []string{auth}
	if !m.visible {
		parts = append(parts, styles.artist.Render("hidden"))
	}
	if m.indicator.Message != "" {
		parts = append(parts, styles.warn.Render(m.indicator.Message))
	}
	return strings.Join(parts, "  ")
}

// Overlay runs a [Model] in a bubbletea program and implements [tasks.Surface] by sending it
// messages.
type Overlay struct {
	program *tea.Program
	model   *Model
}

var _ tasks.Surface = (*Overlay)(nil)

// NewOverlay creates an overlay posting key-driven signals through post.
func NewOverlay(post PostFunc, position [2]float64, opts ...tea.ProgramOption) *Overlay {
	model := NewModel(post, position)
	return &Overlay{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run blocks until the program exits.
func (o *Overlay) Run() error {
	if _, err := o.program.Run(); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	return nil
}

// Quit stops the program. Safe to call more than once.
func (o *Overlay) Quit() { o.program.Quit() }

func (o *Overlay) Show()                            { o.program.Send(showMsg()) }
func (o *Overlay) Hide()                            { o.program.Send(hideMsg()) }
func (o *Overlay) SetTrack(track models.Track)      { o.program.Send(trackMsg(track)) }
func (o *Overlay) SetLyrics(text string)            { o.program.Send(lyricsMsg(text)) }
func (o *Overlay) SetIndicator(ind tasks.Indicator) { o.program.Send(indicatorMsg(ind)) }
