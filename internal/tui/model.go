package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"productload/internal/banner"
	"productload/internal/report"
	"productload/internal/runner"
	"productload/internal/tui/live"
	"productload/internal/tui/result"
	"productload/internal/tui/styles"
)

// RunDoneMsg is sent once Runner.Run has returned.
type RunDoneMsg struct {
	Summary report.Summary
	Err     error
}

type phase int

const (
	phaseRunning phase = iota
	phaseStopping
	phaseDone
)

// Model is the dashboard for a single run: live stats while users are
// active, then the result screen.
type Model struct {
	Cfg     runner.Config
	Updates runner.StatsUpdateChan
	Cancel  context.CancelFunc

	Live   live.Model
	Result result.Model

	phase  phase
	Width  int
	Height int
}

func NewModel(cfg runner.Config, updates runner.StatsUpdateChan, cancel context.CancelFunc) Model {
	return Model{
		Cfg:     cfg,
		Updates: updates,
		Cancel:  cancel,
		Live:    live.NewModel(cfg),
	}
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.Updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		m.Result, _ = m.Result.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.Cancel()
			return m, tea.Quit
		case "q", "esc":
			if m.phase == phaseDone {
				return m, tea.Quit
			}
			m.phase = phaseStopping
			m.Cancel()
			return m, nil
		}

	case runner.StatsSnapshot:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		if m.phase == phaseDone {
			return m, cmd
		}
		return m, tea.Batch(cmd, waitForUpdate(m.Updates))

	case RunDoneMsg:
		m.phase = phaseDone
		m.Result = result.NewModel(msg.Summary, msg.Err)
		m.Result, _ = m.Result.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height})
		return m, nil

	default:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.phase == phaseDone {
		return m.Result.View()
	}

	s := strings.Builder{}
	s.WriteString(banner.GetString())
	s.WriteString(styles.Subtle.Render(fmt.Sprintf("Host: %s | Users: %d | Spawn rate: %.2f/s", m.Cfg.Host, m.Cfg.Users, m.Cfg.SpawnRate)))
	s.WriteString("\n\n")
	s.WriteString(m.Live.View())
	s.WriteString("\n\n")

	if m.phase == phaseStopping {
		s.WriteString(styles.Warn.Render("Stopping: waiting for in-flight requests..."))
	} else {
		s.WriteString(styles.RenderKey("q", "stop run"))
	}
	return s.String()
}
