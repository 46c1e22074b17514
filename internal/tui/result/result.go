package result

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"productload/internal/report"
	"productload/internal/tui/styles"
)

// Model is the final screen of a TUI run.
type Model struct {
	Summary report.Summary
	Err     error

	Width  int
	Height int
}

func NewModel(s report.Summary, err error) Model {
	return Model{Summary: s, Err: err}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("Test Complete"))
	s.WriteString("\n\n")

	if m.Err != nil {
		s.WriteString(styles.Error.Render("Run failed: " + m.Err.Error()))
		s.WriteString("\n\n")
	}

	total := m.Summary.Total
	s.WriteString(styles.Active.Render("Overview"))
	s.WriteString("\n")
	overview := fmt.Sprintf(
		"Duration:       %s\nTotal Requests: %d\nFailed:         %d\nRequests/s:     %.2f",
		m.Summary.Duration.Round(time.Millisecond), total.Requests, total.Failures, total.RPS,
	)
	s.WriteString(styles.Box.Render(overview))
	s.WriteString("\n\n")

	s.WriteString(styles.Active.Render("Requests"))
	s.WriteString("\n")
	var table strings.Builder
	report.WriteStatsTable(&table, m.Summary)
	s.WriteString(styles.Box.Render(strings.TrimRight(table.String(), "\n")))

	if len(m.Summary.Errors) > 0 {
		s.WriteString("\n\n")
		s.WriteString(styles.Error.Render("Failures"))
		s.WriteString("\n")
		var errs strings.Builder
		report.WriteFailures(&errs, m.Summary)
		s.WriteString(styles.Box.Render(strings.TrimRight(errs.String(), "\n")))
	}

	s.WriteString("\n\n")
	s.WriteString(styles.Subtle.Render("Press q to quit"))

	return s.String()
}
