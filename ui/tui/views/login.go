package views

import (
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type LoginView struct{}

func (v LoginView) Render(s state.AppState, props ViewProps) string {
	header := Header("Account & Login", s, props.Width)

	var body string
	if s.Dash.Authenticated {
		body = lipgloss.JoinVertical(lipgloss.Left,
			"Signed in as "+lipgloss.NewStyle().Bold(true).Render(userLabel(s)),
			"",
			"Logout from Settings ([l]).",
		)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, props.LoginInputs...)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		StatusLine(s, props.SpinnerView),
		styles.CardStyle.Width(50).Render(body),
		Footer("[tab] Next field • [enter] Login • [ctrl+g] Google sign-in"),
	)
}
