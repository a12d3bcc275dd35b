package views

import (
	"fmt"
	"strings"

	"autosense/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleView is the scrollable activity log: refreshes, toasts and errors.
type ConsoleView struct{}

func (v ConsoleView) Render(s state.AppState, props ViewProps) string {
	header := Header("Activity Console", s, props.Width)

	availableHeight := props.Height - lipgloss.Height(header) - 4
	if availableHeight < 1 {
		availableHeight = 1
	}

	lines := s.ConsoleLogs
	if len(lines) == 0 {
		lines = []string{"No activity yet."}
	}
	totalLines := len(lines)

	scrollY := ClampScroll(props.ScrollY, totalLines, availableHeight)
	end := min(scrollY+availableHeight, totalLines)
	viewContent := strings.Join(lines[scrollY:end], "\n")

	box := lipgloss.NewStyle().
		Width(max(props.Width-4, 10)).
		Height(availableHeight).
		Padding(0, 1).
		Render(viewContent)

	footerText := fmt.Sprintf("Scroll: %d/%d", scrollY, totalLines)
	if totalLines > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		Footer(footerText),
	)
}

// ClampScroll keeps a scroll offset inside the content.
func ClampScroll(scrollY, total, visible int) int {
	if scrollY > total-visible {
		scrollY = total - visible
	}
	if scrollY < 0 {
		scrollY = 0
	}
	return scrollY
}
