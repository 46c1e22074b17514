package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"productload/internal/storage"
	"productload/internal/tui/styles"
)

// Lister is the part of storage.Store the browser needs.
type Lister interface {
	List() ([]storage.HistoryItem, error)
}

// Model browses saved runs.
type Model struct {
	Store Lister
	Table table.Model
	Items []storage.HistoryItem
	Err   error

	Width  int
	Height int
}

func NewModel(store Lister) Model {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Run", Width: 10},
		{Title: "Host", Width: 30},
		{Title: "Users", Width: 7},
		{Title: "Reqs", Width: 10},
		{Title: "Fails", Width: 8},
		{Title: "RPS", Width: 9},
		{Title: "P99 (ms)", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)
	s.Selected = s.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorPrimary).
		Bold(true)
	t.SetStyles(s)

	m := Model{
		Store: store,
		Table: t,
	}
	m.Refresh()
	return m
}

func (m *Model) Refresh() {
	m.Items, m.Err = m.Store.List()
	m.Table.SetRows(Rows(m.Items))
}

// Rows formats items for the table.
func Rows(items []storage.HistoryItem) []table.Row {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		id := item.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows[i] = table.Row{
			item.Timestamp.Local().Format(time.DateTime),
			id,
			item.Config.Host,
			fmt.Sprintf("%d", item.Config.Users),
			fmt.Sprintf("%d", item.Summary.TotalRequests),
			fmt.Sprintf("%d", item.Summary.Fail),
			fmt.Sprintf("%.2f", item.Summary.RPS),
			fmt.Sprintf("%.1f", item.Summary.P99LatencyMs),
		}
	}
	return rows
}

// Selected returns the highlighted run, if any.
func (m Model) Selected() (storage.HistoryItem, bool) {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.Items) {
		return storage.HistoryItem{}, false
	}
	return m.Items[i], true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		if msg.Height > 8 {
			m.Table.SetHeight(msg.Height - 8)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.Refresh()
			return m, nil
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Err != nil {
		return styles.Error.Render("Error loading history: "+m.Err.Error()) + "\n"
	}
	if len(m.Items) == 0 {
		return styles.Subtle.Render("No runs saved yet.") + "\n"
	}

	footer := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.RenderKey("↑/↓", "select"), "  ",
		styles.RenderKey("r", "refresh"), "  ",
		styles.RenderKey("q", "quit"),
	)

	view := styles.Box.Render(m.Table.View()) + "\n"
	if item, ok := m.Selected(); ok {
		view += styles.Subtle.Render(fmt.Sprintf("run %s  avg %.1f ms  p50 %.1f ms  duration %s",
			item.ID, item.Summary.AvgLatencyMs, item.Summary.P50LatencyMs, item.Summary.Duration.Round(time.Millisecond))) + "\n"
	}
	return view + footer + "\n"
}
