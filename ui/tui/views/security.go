package views

import (
	"fmt"
	"slices"
	"strings"

	"autosense/internal/projector"
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type SecurityView struct{}

func (v SecurityView) Render(s state.AppState, props ViewProps) string {
	header := Header("Security Center", s, props.Width)

	if !s.Dash.Authenticated {
		return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
			header,
			lipgloss.NewStyle().Padding(1, 2).Render("Please login to access the Security Center"),
			Footer(""),
		))
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		firewallCard(s.Dash.Firewall),
		scanCard(s.Dash.Security),
	)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		StatusLine(s, props.SpinnerView),
		cards,
		portsCard(s.Dash.Ports, s.Dash.PortCount),
		ActionBar(state.PageSecurity),
		Footer(""),
	))
}

func firewallCard(fw *projector.Firewall) string {
	body := "Not checked"
	if fw != nil {
		on := lipgloss.NewStyle().Foreground(styles.Green).Render("Enabled")
		if !fw.Enabled {
			on = lipgloss.NewStyle().Foreground(styles.Red).Render("Disabled")
		}
		lines := []string{"Status: " + on}
		names := make([]string, 0, len(fw.Profiles))
		for name := range fw.Profiles {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			mark := "✗"
			if fw.Profiles[name] {
				mark = "✓"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", mark, name))
		}
		body = strings.Join(lines, "\n")
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, cardTitle("Firewall"), body))
}

func scanCard(sc *projector.SecurityScan) string {
	body := "Not scanned"
	if sc != nil {
		level := lipgloss.NewStyle().Bold(true).Foreground(ColorForBand(projector.Severity(sc.Level))).Render(sc.Level)
		body = fmt.Sprintf("Risk: %s (%d%%)\nThreats: %d\n%s", level, sc.RiskPercent, sc.Threats, sc.Recommendation)
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, cardTitle("Malware Scan"), body))
}

func portsCard(ports []projector.Port, count int) string {
	body := "Not checked"
	if ports != nil || count > 0 {
		rows := []string{fmt.Sprintf("%-7s %-6s %-18s %s", "PORT", "PROTO", "ADDRESS", "PROCESS")}
		for _, p := range ports {
			rows = append(rows, fmt.Sprintf("%-7d %-6s %-18s %s", p.Port, p.Protocol, p.Address, p.ProcessLabel()))
		}
		if count > len(ports) {
			rows = append(rows, lipgloss.NewStyle().Foreground(styles.Subtle).
				Render(fmt.Sprintf("... and %d more", count-len(ports))))
		}
		body = strings.Join(rows, "\n")
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		cardTitle(fmt.Sprintf("Open Ports (%d)", count)), body))
}
