package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"productload/internal/runner"
	"productload/internal/tui/components"
	"productload/internal/tui/styles"
)

// Model shows a run while it is in progress.
type Model struct {
	Cfg      runner.Config
	Stats    runner.StatsSnapshot
	Progress progress.Model

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	LastUpdate time.Time
	LastReqs   uint64

	Width  int
	Height int
}

func NewModel(cfg runner.Config) Model {
	slRps := components.NewSparkline(
		40, 1,
		"RPS",
		styles.Active,
	)

	slLat := components.NewSparkline(
		40, 1,
		"Latency P90 (ms)",
		styles.Warn,
	)

	return Model{
		Cfg:         cfg,
		Progress:    progress.New(progress.WithDefaultGradient()),
		RpsLine:     slRps,
		LatencyLine: slLat,
		LastUpdate:  time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.StatsSnapshot:
		now := time.Now()
		dt := now.Sub(m.LastUpdate).Seconds()
		if dt < 0.01 {
			dt = 0.01
		}

		deltaReqs := msg.Requests - m.LastReqs
		rps := float64(deltaReqs) / dt

		m.RpsLine.Add(uint64(rps))
		m.LatencyLine.Add(uint64(msg.P90Ms))

		m.Stats = msg
		m.LastReqs = msg.Requests
		m.LastUpdate = now

		if m.Cfg.RunTime <= 0 {
			return m, nil
		}
		pct := float64(msg.Elapsed) / float64(m.Cfg.RunTime)
		if pct > 1.0 {
			pct = 1.0
		}
		return m, m.Progress.SetPercent(pct)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 8
		if half < 10 {
			half = 10
		}
		m.RpsLine.Resize(half)
		m.LatencyLine.Resize(half)
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	reqs := m.Stats.Requests
	errRate := 0.0
	if reqs > 0 {
		errRate = (float64(m.Stats.Fail) / float64(reqs)) * 100
	}

	var errColor lipgloss.Style
	if errRate > 5.0 {
		errColor = styles.Error
	} else if errRate > 1.0 {
		errColor = styles.Warn
	} else {
		errColor = styles.Active
	}

	col1 := fmt.Sprintf("USERS: %d/%d\nINF: %d", m.Stats.Users, m.Cfg.Users, m.Stats.Inflight)
	col2 := fmt.Sprintf("REQ: %d\nKB: %d", reqs, m.Stats.Bytes/1024)
	col3 := fmt.Sprintf("ERR: %.2f%%\nFAIL: %d", errRate, m.Stats.Fail)

	grid := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(col2),
		styles.Box.Render(errColor.Render(col3)),
	)
	s.WriteString(grid)
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	latencies := fmt.Sprintf(
		"P50: %.2f ms  |  P90: %.2f ms  |  P99: %.2f ms  |  Max: %.2f ms",
		m.Stats.P50Ms,
		m.Stats.P90Ms,
		m.Stats.P99Ms,
		m.Stats.MaxMs,
	)
	s.WriteString(styles.Box.Render(latencies))
	s.WriteString("\n\n")

	if len(m.Stats.Entries) > 0 {
		s.WriteString(styles.Box.Render(m.entriesView()))
		s.WriteString("\n\n")
	}

	if m.Cfg.RunTime > 0 {
		s.WriteString(m.Progress.View())
	} else {
		s.WriteString(styles.Subtle.Render(fmt.Sprintf("Elapsed %s (runs until stopped)", m.Stats.Elapsed.Round(time.Second))))
	}

	return s.String()
}

func (m Model) entriesView() string {
	b := strings.Builder{}
	b.WriteString(styles.KeyKey.Render(fmt.Sprintf("%-6s %-26s %9s %7s %9s %9s", "TYPE", "NAME", "REQS", "FAILS", "AVG ms", "P90 ms")))
	for _, e := range m.Stats.Entries {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%-6s %-26s %9d %7d %9.1f %9.1f", e.Method, e.Name, e.Requests, e.Fail, e.AvgMs, e.P90Ms))
	}
	return b.String()
}
