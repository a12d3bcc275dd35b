package views

import (
	"fmt"

	"autosense/internal/output"
	"autosense/internal/projector"
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type DashboardView struct{}

func (v DashboardView) Render(s state.AppState, props ViewProps) string {
	header := Header("AutoSense X Dashboard", s, props.Width)
	status := StatusLine(s, props.SpinnerView)

	if !s.Dash.HasMetrics {
		msg := "Waiting for the first snapshot..."
		if s.Err != nil {
			msg = fmt.Sprintf("Error: %v", s.Err)
		}
		return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
			header, status,
			lipgloss.NewStyle().Padding(1, 2).Render(props.SpinnerView+" "+msg),
			ActionBar(state.PageDashboard),
			Footer(""),
		))
	}

	mv := s.Dash.Metrics
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		metricCard("CPU Usage", mv.CPU),
		metricCard("Memory", mv.Memory),
		metricCard("Disk", mv.Disk),
		styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			cardTitle("Processes"),
			lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d", mv.Processes)),
			"running",
			Bar(mv.ProcessProgress, 20),
		)),
	)

	var charts []string
	for _, c := range props.ChartViews {
		charts = append(charts, lipgloss.NewStyle().Padding(0, 2).Render(c))
	}
	chartRow := lipgloss.JoinHorizontal(lipgloss.Top, charts...)

	row := lipgloss.JoinHorizontal(lipgloss.Top, healthCard(s), lifeCard(s))

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		status,
		cards,
		chartRow,
		row,
		ActionBar(state.PageDashboard),
		Footer(""),
	))
}

func metricCard(title string, c projector.Card) string {
	band := projector.UsageBand(c.Percent)
	value := lipgloss.NewStyle().Bold(true).Foreground(ColorForBand(band)).Render(c.Label)
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		cardTitle(title),
		value+"  "+c.Trend.String(),
		c.Detail,
		Bar(c.Percent, 20),
	))
}

func healthCard(s state.AppState) string {
	dashboard := output.BuildDashboard(s.Dash.Checks, s.Dash.Raw)

	content := ""
	for _, sec := range dashboard.Sections {
		for _, item := range sec.Items {
			if item.Status == "" {
				continue
			}
			valStr := fmt.Sprintf("%.1f%s", item.Value, item.Unit)
			valStr = ColorForStatus(item.Status).Render(fmt.Sprintf("%s [%s]", valStr, item.Status))
			content += fmt.Sprintf("%-15s : %s\n", item.Label, valStr)
		}
	}
	if why := output.Explain(s.Dash.Checks); why != "" {
		content += lipgloss.NewStyle().Foreground(styles.Gold).Render(why)
	}

	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		cardTitle("Health Checks"),
		content,
	))
}

func lifeCard(s state.AppState) string {
	life := s.Dash.Life
	if life == nil {
		return ""
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		cardTitle("Device Life Saver"),
		fmt.Sprintf("Health score: %d/100", life.Estimate.HealthScore),
		"Life saved: "+lipgloss.NewStyle().Foreground(styles.Special).Render(life.Saved),
		"Projected:  "+life.Projected,
	))
}
