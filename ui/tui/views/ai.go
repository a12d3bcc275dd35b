package views

import (
	"fmt"

	"autosense/internal/projector"
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type AIView struct{}

func (v AIView) Render(s state.AppState, props ViewProps) string {
	header := Header("AI Health Insights", s, props.Width)

	prediction := "Press [p] to analyze system health."
	if p := s.Dash.Prediction; p != nil {
		level := lipgloss.NewStyle().Bold(true).
			Foreground(ColorForBand(projector.Severity(p.Level))).
			Render(p.Level)
		prediction = fmt.Sprintf("Risk level: %s\nFailure risk: %d%%\n%s", level, p.RiskPercent, Bar(float64(p.RiskPercent), 30))
		if p.Explanation != "" {
			prediction += "\n\n" + p.Explanation
		}
		for _, r := range p.Recommendations {
			prediction += "\n • " + r
		}
	}
	predictionCard := styles.CardStyle.Width(max(props.Width/2-4, 30)).Render(
		lipgloss.JoinVertical(lipgloss.Left, cardTitle("Failure Prediction"), prediction))

	answer := "Ask AutoSense anything, e.g. \"how is my system doing?\""
	if a := s.Dash.LastAnswer; a != nil {
		answer = a.Text
		if a.Intent != "" && a.Intent != "unknown" {
			answer += lipgloss.NewStyle().Foreground(styles.Subtle).Render(fmt.Sprintf("\n\nSuggested action: %s", a.Intent))
		}
	}
	assistantCard := styles.CardStyle.Width(max(props.Width/2-4, 30)).Render(
		lipgloss.JoinVertical(lipgloss.Left, cardTitle("Assistant"), answer, "", props.InputView))

	hint := "[i] Ask"
	if props.InputActive {
		hint = "[enter] Send • [esc] Cancel"
	}

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		StatusLine(s, props.SpinnerView),
		lipgloss.JoinHorizontal(lipgloss.Top, predictionCard, assistantCard),
		ActionBar(state.PageAI),
		Footer(hint),
	))
}
