package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Sparkline is a one-line scrolling chart of the last Width samples.
type Sparkline struct {
	Data   []uint64
	Width  int
	Height int
	Max    uint64
	Style  lipgloss.Style
	Label  string
}

func NewSparkline(width, height int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width:  width,
		Height: height,
		Label:  label,
		Style:  style,
		Data:   make([]uint64, 0, width),
	}
}

func (s *Sparkline) Add(val uint64) {
	s.Data = append(s.Data, val)
	s.trim()
}

// Resize changes the window, dropping the oldest samples if it shrinks.
func (s *Sparkline) Resize(width int) {
	s.Width = width
	s.trim()
}

func (s *Sparkline) trim() {
	if s.Width >= 0 && len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}

	// max of the visible window
	max := uint64(0)
	for _, v := range s.Data {
		if v > max {
			max = v
		}
	}
	s.Max = max
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}

	out := strings.Builder{}
	out.WriteString(s.Style.Render(s.Label))
	out.WriteString("\n")

	var graph strings.Builder
	for _, v := range s.Data {
		graph.WriteString(level(v, s.Max))
	}

	// Pad if not full
	pad := s.Width - len(s.Data)
	if pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}

	return out.String() + s.Style.Render(graph.String())
}

func level(v, max uint64) string {
	if max == 0 {
		return levels[0]
	}
	idx := int(float64(v) / float64(max) * float64(len(levels)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(levels) {
		idx = len(levels) - 1
	}
	return levels[idx]
}
