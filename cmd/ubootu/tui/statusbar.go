package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/johnwyles/ubootu-sub000/internal/removal"
)

// StatusBar renders the bottom row with selection counts, config status and
// keyboard shortcuts.
type StatusBar struct {
	selected int
	total    int
	config   string
	mode     removal.Mode
	width    int
}

// SetWidth sets the available width for rendering.
func (s *StatusBar) SetWidth(w int) {
	s.width = w
}

// Update refreshes the counts, config status text and mode.
func (s *StatusBar) Update(selected, total int, config string, mode removal.Mode) {
	s.selected = selected
	s.total = total
	s.config = config
	s.mode = mode
}

// View renders the status bar.
func (s StatusBar) View() string {
	leftPart := fmt.Sprintf("%d/%d selected · %s", s.selected, s.total, s.config)
	if s.mode == removal.Strict {
		leftPart += " " + StrictModeStyle.Render("STRICT")
	}

	shortcuts := []string{
		StatusBarKeyStyle.Render("Space") + ": toggle",
		StatusBarKeyStyle.Render("r") + ": refresh",
		StatusBarKeyStyle.Render("m") + ": mode",
		StatusBarKeyStyle.Render("A") + ": apply",
		StatusBarKeyStyle.Render("q") + ": quit",
	}
	rightPart := strings.Join(shortcuts, " · ")

	leftWidth := ansi.StringWidth(leftPart)
	rightWidth := ansi.StringWidth(rightPart)
	availableWidth := s.width - 2 // StatusBarStyle padding
	gap := availableWidth - leftWidth - rightWidth
	if gap < 1 {
		gap = 1
	}

	content := leftPart + strings.Repeat(" ", gap) + rightPart

	return StatusBarStyle.Width(s.width).Render(content)
}
