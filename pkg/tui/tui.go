// Package tui is the live progress view shown while a suite runs.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/simrun/pkg/orchestrator"
	"github.com/dkoosis/simrun/pkg/render"
	"github.com/dkoosis/simrun/pkg/status"
)

const (
	logTailLines = 200
	refreshEvery = 500 * time.Millisecond
	minListWidth = 24
)

// State is a test's place in the run.
type State int

const (
	StatePending State = iota
	StateRunning
	StateDone
	StateKept
	StateErrored
)

// Test is one row of the task list.
type Test struct {
	Name       string
	State      State
	Status     status.Status
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the elapsed time, still counting for running tests.
func (t *Test) Duration() time.Duration {
	switch {
	case t.StartedAt.IsZero():
		return 0
	case t.FinishedAt.IsZero():
		return time.Since(t.StartedAt)
	default:
		return t.FinishedAt.Sub(t.StartedAt)
	}
}

// EventMsg delivers an orchestrator event to the model.
type EventMsg orchestrator.Event

// DoneMsg tells the model the run is over; the program quits on it.
type DoneMsg struct{}

type tickMsg struct{}

// Model is the bubbletea model of the live view.
type Model struct {
	tests    []*Test
	index    map[string]int
	layout   orchestrator.Layout
	theme    render.Theme
	cancel   context.CancelFunc
	spinner  spinner.Model
	bar      progress.Model
	viewport viewport.Model

	selected    int
	follow      bool
	finished    int
	interrupted bool
	done        bool
	ready       bool
	width       int
	height      int
	listWidth   int
}

// New creates a model for the named tests. cancel is called on ctrl+c.
func New(names []string, layout orchestrator.Layout, theme render.Theme, cancel context.CancelFunc) Model {
	m := Model{
		index:    make(map[string]int, len(names)),
		layout:   layout,
		theme:    theme,
		cancel:   cancel,
		follow:   true,
		viewport: viewport.New(0, 0),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(theme.Primary),
		),
	}
	for i, n := range names {
		m.tests = append(m.tests, &Test{Name: n})
		m.index[n] = i
	}
	barOpts := []progress.Option{progress.WithoutPercentage()}
	if theme.BarFill != "" {
		barOpts = append(barOpts, progress.WithSolidFill(theme.BarFill))
	} else {
		barOpts = append(barOpts, progress.WithFillCharacters('#', '-'))
	}
	m.bar = progress.New(barOpts...)
	m.viewport.SetContent("Waiting for the first test to start")
	return m
}

// Tests returns the rows in suite order.
func (m Model) Tests() []*Test { return m.tests }

// Interrupted reports whether the user cancelled the run.
func (m Model) Interrupted() bool { return m.interrupted }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if !m.interrupted && m.cancel != nil {
				m.cancel()
			}
			m.interrupted = true
			if m.done {
				return m, tea.Quit
			}
		case "q":
			if m.done {
				return m, tea.Quit
			}
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.follow = false
				m.refreshViewport()
			}
		case "down", "j":
			if m.selected < len(m.tests)-1 {
				m.selected++
				m.follow = false
				m.refreshViewport()
			}
		case "f":
			m.follow = true
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.listWidth = max(minListWidth, min(m.longestName()+16, m.width/2))
		m.viewport.Width = max(10, m.width-m.listWidth-5)
		m.viewport.Height = max(3, m.height-8)
		m.bar.Width = max(10, min(60, m.width-30))
		m.ready = true
		m.refreshViewport()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		m.refreshViewport()
		return m, tick()
	case EventMsg:
		m.apply(orchestrator.Event(msg))
	case DoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(e orchestrator.Event) {
	i, ok := m.index[e.Test]
	if !ok {
		return
	}
	t := m.tests[i]
	switch e.Type {
	case orchestrator.EventTestStarted:
		t.State = StateRunning
		t.StartedAt = e.When
		if m.follow {
			m.selected = i
		}
	case orchestrator.EventTestSkipped:
		t.State = StateKept
		t.Status = e.Status
		t.FinishedAt = e.When
		m.finished++
	case orchestrator.EventTestCompleted:
		t.State = StateDone
		t.Status = e.Status
		t.FinishedAt = e.When
		m.finished++
	case orchestrator.EventTestErrored:
		t.State = StateErrored
		t.FinishedAt = e.When
		m.finished++
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if m.selected < 0 || m.selected >= len(m.tests) {
		return
	}
	t := m.tests[m.selected]
	if t.State == StatePending {
		m.viewport.SetContent("Not started")
		return
	}
	lines, err := status.Tail(m.layout.LogPath(t.Name), logTailLines)
	if err != nil {
		m.viewport.SetContent(m.theme.Muted.Render("No log yet"))
		return
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) longestName() int {
	n := 0
	for _, t := range m.tests {
		n = max(n, runewidth.StringWidth(t.Name))
	}
	return n
}

func (m Model) View() string {
	if !m.ready {
		return "Starting tests..."
	}
	total := len(m.tests)
	ratio := 0.0
	if total > 0 {
		ratio = float64(m.finished) / float64(total)
	}
	head := fmt.Sprintf("%s Running tests %d/%d  %s", m.spinner.View(), m.finished, total, m.bar.ViewAs(ratio))
	if m.interrupted {
		head = m.theme.Warning.Render("Interrupted, stopping simulations...")
	}

	list := m.renderList(max(3, m.height-6))
	detail := ""
	if m.selected < len(m.tests) {
		detail = m.theme.Bold.Render(m.tests[m.selected].Name) + "\n" + m.viewport.View()
	}
	listPanel := lipgloss.NewStyle().Width(m.listWidth).Render(list)
	detailPanel := lipgloss.NewStyle().PaddingLeft(2).Render(detail)
	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, detailPanel)

	help := m.theme.Muted.Render("↑/↓ select • f follow • ctrl+c stop")
	return lipgloss.JoinVertical(lipgloss.Left, head, "", panels, "", help)
}

// renderList shows a window of rows that keeps the selection visible.
func (m Model) renderList(height int) string {
	start := 0
	if m.selected >= height {
		start = m.selected - height + 1
	}
	end := min(len(m.tests), start+height)
	nameWidth := max(8, m.listWidth-14)

	var lines []string
	for i := start; i < end; i++ {
		t := m.tests[i]
		name := runewidth.Truncate(t.Name, nameWidth, "...")
		row := fmt.Sprintf("%s %s", m.icon(t), runewidth.FillRight(name, nameWidth))
		if d := t.Duration(); d > 0 {
			row += m.theme.Muted.Render(" " + orchestrator.FormatRuntime(d))
		}
		if i == m.selected {
			row = m.theme.Bold.Render("▶") + " " + row
		} else {
			row = "  " + row
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

func (m Model) icon(t *Test) string {
	switch t.State {
	case StateRunning:
		return m.spinner.View()
	case StateKept:
		return m.theme.Success.Render(m.theme.Icons.Kept)
	case StateErrored:
		return m.theme.Error.Render(m.theme.Icons.Error)
	case StateDone:
		switch t.Status {
		case status.Passed:
			return m.theme.Success.Render(m.theme.Icons.Pass)
		case status.Failed:
			return m.theme.Error.Render(m.theme.Icons.Fail)
		case status.LogMissing:
			return m.theme.Warning.Render(m.theme.Icons.Missing)
		default:
			return m.theme.Error.Render(m.theme.Icons.Inconclusive)
		}
	default:
		return m.theme.Muted.Render("·")
	}
}
