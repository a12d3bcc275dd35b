package views

import (
	"strings"

	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type AlertsView struct{}

func (v AlertsView) Render(s state.AppState, props ViewProps) string {
	header := Header("Alerts & Notifications", s, props.Width)

	var body string
	switch {
	case !s.Dash.Authenticated:
		body = "Login to see alerts."
	case len(s.Dash.Alerts) == 0:
		body = lipgloss.NewStyle().Foreground(styles.Special).Render("✓ No alerts")
	default:
		var rows []string
		for _, a := range s.Dash.Alerts {
			c := styles.Blue
			switch strings.ToLower(a.Type) {
			case "critical", "error":
				c = styles.Red
			case "warning":
				c = styles.Gold
			}
			title := lipgloss.NewStyle().Bold(true).Foreground(c).Render(a.Title)
			clock := lipgloss.NewStyle().Foreground(styles.Subtle).Render(a.Clock())
			rows = append(rows, title+"  "+clock+"\n  "+a.Message)
		}
		body = strings.Join(rows, "\n\n")
	}

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		StatusLine(s, props.SpinnerView),
		lipgloss.NewStyle().Padding(1, 2).Render(body),
		ActionBar(state.PageAlerts),
		Footer(""),
	))
}
