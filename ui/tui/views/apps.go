package views

import (
	"fmt"

	"autosense/internal/projector"
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// maxAppRows bounds the visible list; the selection scrolls it.
const maxAppRows = 15

type AppsView struct{}

func (v AppsView) Render(s state.AppState, props ViewProps) string {
	header := Header("Installed Applications", s, props.Width)

	var body string
	apps := projector.FilterApps(s.Dash.Apps, s.AppQuery)
	switch {
	case !s.Dash.Authenticated:
		body = "Please login to manage applications"
	case s.Dash.Apps == nil:
		body = "Press [l] to load installed applications."
	case len(apps) == 0:
		body = "No applications match the search."
	default:
		start := 0
		if s.SelectedApp >= maxAppRows {
			start = s.SelectedApp - maxAppRows + 1
		}
		end := min(start+maxAppRows, len(apps))
		var rows []string
		for i := start; i < end; i++ {
			a := apps[i]
			line := fmt.Sprintf("%-40s %-25s %s", truncate(a.Name, 40), truncate(a.Publisher, 25), a.Version)
			if i == s.SelectedApp {
				line = lipgloss.NewStyle().Bold(true).Foreground(styles.BrandColor).Render("▶ " + line)
			} else {
				line = "  " + line
			}
			rows = append(rows, line)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, rows...)
		body += lipgloss.NewStyle().Foreground(styles.Subtle).
			Render(fmt.Sprintf("\n\nShowing %d of %d applications", len(apps), s.Dash.AppCount))
	}

	hint := "[/] Search • [↑/↓] Select"
	if props.InputActive {
		hint = "[enter] Apply • [esc] Cancel"
	}

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		StatusLine(s, props.SpinnerView),
		lipgloss.NewStyle().Padding(1, 2).Render(props.InputView),
		lipgloss.NewStyle().PaddingLeft(2).Render(body),
		ActionBar(state.PageApps),
		Footer(hint),
	))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
