package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/procmon/internal/table"
)

// Model shows the latest view pushed by the engine.
type Model struct {
	view   table.View
	err    error
	ready  bool
	stop   func()
	width  int
	height int
}

// New returns a model that calls stop when the user quits.
func New(stop func()) *Model {
	return &Model{
		stop:   stop,
		width:  120,
		height: 40,
	}
}

// Messages
type (
	viewMsg table.View
	errMsg  struct{ err error }
	doneMsg struct{}
)

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.stop()
			return m, tea.Quit
		}
	case viewMsg:
		m.view = table.View(msg)
		m.ready = true
	case errMsg:
		m.err = msg.err
	case doneMsg:
		return m, tea.Quit
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
)

// rows that are not process lines: title, gauges, table borders and header, footer
const chromeLines = 7

func (m *Model) View() string {
	header := titleStyle.Render("procmon") + "  " + subtleStyle.Render("q to quit")
	if !m.ready {
		status := subtleStyle.Render("collecting…")
		if m.err != nil {
			status = errorStyle.Render(fmt.Sprintf("error: %v", m.err))
		}
		return lipgloss.JoinVertical(lipgloss.Left, header, status)
	}

	view := m.view
	if fit := m.height - chromeLines; fit > 0 && len(view.Rows) > fit {
		view.Rows = view.Rows[:fit]
	}

	maxCell := 0
	if len(view.Columns) > 0 {
		maxCell = max(12, m.width/(len(view.Columns)+1)-3)
	}

	footer := subtleStyle.Render(Summary(m.view))
	if m.err != nil {
		footer = errorStyle.Render(fmt.Sprintf("error: %v", m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.gauges(), RenderTable(view, maxCell), footer)
}

func (m *Model) gauges() string {
	sys := m.view.System
	if sys == nil {
		return ""
	}
	return labelStyle.Render("CPU ") + gaugeBar(sys.CPU, 20) +
		labelStyle.Render("  MEM ") + gaugeBar(pct(sys.MemUsed, sys.MemTotal), 20) +
		subtleStyle.Render(fmt.Sprintf("  load %.2f %.2f %.2f", sys.Load1, sys.Load5, sys.Load15))
}

func gaugeBar(pct float64, width int) string {
	pct = min(max(pct, 0), 100)
	filled := min(int((pct/100)*float64(width)), width)
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func pct(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

// TUI runs the full screen program and accepts views from the engine.
type TUI struct {
	program *tea.Program
}

// NewTUI builds the program. stop is called when the user quits.
func NewTUI(stop func(), opts ...tea.ProgramOption) *TUI {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &TUI{program: tea.NewProgram(New(stop), opts...)}
}

// Render hands a view to the running program. It blocks until the program
// accepts it or has exited.
func (t *TUI) Render(view table.View) error {
	t.program.Send(viewMsg(view))
	return nil
}

// Fail shows err in the footer; the program keeps running until the user
// quits.
func (t *TUI) Fail(err error) {
	t.program.Send(errMsg{err: err})
}

// Done ends the program once the engine has stopped.
func (t *TUI) Done() {
	t.program.Send(doneMsg{})
}

// Run blocks until the program exits.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}
