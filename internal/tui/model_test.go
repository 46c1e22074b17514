package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productload/internal/report"
	"productload/internal/runner"
)

func newTestModel() (Model, *bool) {
	cancelled := false
	cfg := runner.DefaultConfig()
	cfg.Users = 5
	cfg.RunTime = 10 * time.Second
	return NewModel(cfg, make(runner.StatsUpdateChan, 1), func() { cancelled = true }), &cancelled
}

func TestSnapshotUpdatesLiveView(t *testing.T) {
	m, _ := newTestModel()

	next, cmd := m.Update(runner.StatsSnapshot{
		Requests: 12, Fail: 1, Users: 3, Elapsed: time.Second,
		Entries: []runner.EntrySnapshot{{Method: "GET", Name: "/products/[id]", Requests: 12, Fail: 1}},
	})
	assert.NotNil(t, cmd)

	view := next.(Model).View()
	assert.Contains(t, view, "USERS: 3/5")
	assert.Contains(t, view, "REQ: 12")
	assert.Contains(t, view, "/products/[id]")
}

func TestStopThenQuit(t *testing.T) {
	m, cancelled := newTestModel()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	assert.True(t, *cancelled)
	assert.Contains(t, next.(Model).View(), "Stopping")

	s := report.Summary{Total: report.EntrySummary{Name: "Aggregated", Requests: 7}}
	next, _ = next.Update(RunDoneMsg{Summary: s, Err: errors.New("boom")})
	view := next.(Model).View()
	assert.Contains(t, view, "Test Complete")
	assert.Contains(t, view, "boom")

	_, cmd = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestCtrlCCancelsAndQuits(t *testing.T) {
	m, cancelled := newTestModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, *cancelled)
	assert.Equal(t, tea.Quit(), cmd())
}
