package views

import (
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type SettingsView struct{}

func (v SettingsView) Render(s state.AppState, props ViewProps) string {
	header := Header("Settings", s, props.Width)

	rows := []string{
		toggleRow("Auto refresh", s.Dash.AutoRefresh),
		toggleRow("Notifications", s.Dash.Notifications),
	}
	account := "Not logged in"
	if s.Dash.Authenticated {
		account = "Signed in as " + userLabel(s)
	}
	rows = append(rows, "", "Account: "+account)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		StatusLine(s, props.SpinnerView),
		styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
		ActionBar(state.PageSettings),
		Footer(""),
	))
}

func toggleRow(label string, on bool) string {
	value := lipgloss.NewStyle().Foreground(styles.Green).Render("ON")
	if !on {
		value = lipgloss.NewStyle().Foreground(styles.Red).Render("OFF")
	}
	return lipgloss.NewStyle().Width(16).Render(label) + value
}
