// Package tui renders the dashboard in the terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pcdogyu/market-dashboard/internal/memstore"
)

// Palette holds the configured colors.
type Palette struct {
	Tickers map[string]string
	Up      string
	Down    string
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (p Palette) ticker(sym string) lipgloss.Style {
	if c, ok := p.Tickers[sym]; ok && c != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return lipgloss.NewStyle()
}

type frameMsg memstore.Frame

type model struct {
	frame   memstore.Frame
	palette Palette

	width, height int
	viewport      viewport.Model
	ready         bool

	onRefresh func()
	onQuit    func()
}

func newModel(initial memstore.Frame, palette Palette, onRefresh, onQuit func()) model {
	if onRefresh == nil {
		onRefresh = func() {}
	}
	if onQuit == nil {
		onQuit = func() {}
	}
	return model{frame: initial, palette: palette, onRefresh: onRefresh, onQuit: onQuit}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "ctrl+c":
			m.onQuit()
			return m, tea.Quit
		case "r":
			m.onRefresh()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - m.chromeHeight()
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderCharts())
		return m, nil
	case frameMsg:
		m.frame = memstore.Frame(msg)
		if m.ready {
			m.viewport.SetContent(m.renderCharts())
		}
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderStatus(),
		m.viewport.View(),
		m.renderFooter(),
	)
}

// chromeHeight is the number of rows outside the chart viewport.
func (m model) chromeHeight() int {
	return lipgloss.Height(m.renderHeader()) + 2
}

func (m model) renderHeader() string {
	n := len(m.frame.Tickers)
	if n == 0 {
		return titleStyle.Render("Market Dashboard")
	}
	boxW := m.width/n - 2
	if boxW < 14 {
		boxW = 14
	}

	boxes := make([]string, 0, n)
	for _, tf := range m.frame.Tickers {
		color := m.palette.ticker(tf.Symbol)
		change := dimStyle.Render(tf.Change)
		if tf.HasChange {
			c := m.palette.Down
			if tf.Up {
				c = m.palette.Up
			}
			change = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c)).Render(tf.Change)
		}
		body := lipgloss.JoinVertical(lipgloss.Left,
			color.Bold(true).Render(tf.Symbol),
			titleStyle.Render(tf.PriceText),
			change,
		)
		boxes = append(boxes, boxStyle.BorderForeground(color.GetForeground()).Width(boxW).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m model) renderStatus() string {
	return statusStyle.Render(m.frame.Status)
}

func (m model) renderFooter() string {
	parts := []string{"q/esc quit", "r refresh"}
	if m.frame.Session != "" {
		parts = append(parts, "session "+m.frame.Session)
	}
	if !m.frame.UpdatedUTC.IsZero() {
		loc := m.frame.WindowOpen.Location()
		parts = append(parts, "updated "+m.frame.UpdatedUTC.In(loc).Format("15:04:05 MST"))
	}
	return dimStyle.Render(strings.Join(parts, " · "))
}

func (m model) renderCharts() string {
	n := len(m.frame.Tickers)
	if n == 0 {
		return dimStyle.Render("no tickers configured")
	}
	avail := m.height - m.chromeHeight()
	h := avail/n - 2 // caption + blank line
	if h < 3 {
		h = 3
	}

	charts := make([]string, 0, n)
	for _, tf := range m.frame.Tickers {
		g := plot(tf, m.frame.WindowOpen, m.frame.WindowClose, m.width, h)
		charts = append(charts, m.palette.ticker(tf.Symbol).Render(g))
	}
	return strings.Join(charts, "\n\n")
}

// UI is a collector renderer backed by a bubbletea program.
type UI struct {
	p      *tea.Program
	frames chan memstore.Frame
}

// New builds the terminal UI. onQuit runs when the user quits; onRefresh
// when they ask for a refresh.
func New(ctx context.Context, initial memstore.Frame, palette Palette, onRefresh, onQuit func()) *UI {
	p := tea.NewProgram(
		newModel(initial, palette, onRefresh, onQuit),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	return &UI{p: p, frames: make(chan memstore.Frame, 1)}
}

// Render keeps only the newest pending frame and never blocks.
func (u *UI) Render(f memstore.Frame) {
	for {
		select {
		case u.frames <- f:
			return
		default:
		}
		select {
		case <-u.frames:
		default:
		}
	}
}

// Run blocks until the user quits or ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case f := <-u.frames:
				u.p.Send(frameMsg(f))
			}
		}
	}()

	_, err := u.p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
