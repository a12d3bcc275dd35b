package views

import (
	"fmt"
	"strconv"
	"strings"

	"autosense/internal/controller"
	"autosense/internal/projector"
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

func itoa(i int) string { return strconv.Itoa(i) }

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	if status == "WARN" {
		return sStyle.Foreground(styles.Gold)
	} else if status == "CRIT" {
		return sStyle.Foreground(styles.Red)
	}
	return sStyle.Foreground(styles.Green)
}

func ColorForBand(b projector.Band) lipgloss.Color {
	switch b {
	case projector.BandCritical:
		return styles.Red
	case projector.BandWarning:
		return styles.Gold
	}
	return styles.Green
}

func colorForLevel(l controller.Level) lipgloss.Color {
	switch l {
	case controller.LevelSuccess:
		return styles.Green
	case controller.LevelError:
		return styles.Red
	case controller.LevelWarning:
		return styles.Gold
	}
	return styles.Blue
}

// Bar renders a usage bar colored by its band.
func Bar(percent float64, width int) string {
	filled := int(float64(width) * percent / 100)
	filled = max(0, min(filled, width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(ColorForBand(projector.UsageBand(percent))).Render(bar)
}

// Header renders the page title bar with the alert badge on the right.
func Header(title string, s state.AppState, width int) string {
	right := ""
	if s.Dash.BadgeOn {
		right = " " + styles.BadgeStyle.Render("🔔 "+s.Dash.Badge)
	}
	return styles.HeaderStyle.Width(width).Render(title + right)
}

// StatusLine shows server, session and refresh state.
func StatusLine(s state.AppState, spinnerView string) string {
	server := lipgloss.NewStyle().Foreground(styles.Green).Render("● Online")
	switch {
	case s.Dash.Offline:
		server = lipgloss.NewStyle().Foreground(styles.Gold).Render("● Offline (local sample)")
	case !s.Dash.Online:
		server = lipgloss.NewStyle().Foreground(styles.Red).Render("● Offline")
	}

	user := "Not logged in"
	if s.Dash.Authenticated {
		user = "Logged in"
		if s.Dash.User != "" {
			user = "👤 " + s.Dash.User
		}
	}

	updated := "never"
	if !s.Dash.LastRefresh.IsZero() {
		updated = s.Dash.LastRefresh.Format("15:04:05")
	}

	busy := ""
	if s.Busy > 0 {
		busy = spinnerView + " "
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s%s │ %s │ Last Update: %s", busy, server, user, updated))
}

// ActionBar renders the page's clickable action buttons with their keys.
func ActionBar(page state.Page) string {
	var buttons []string
	for _, a := range PageActions(page) {
		btn := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.BrandColor).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] %s", a.Key, a.Label))
		buttons = append(buttons, zone.Mark(ActionZone(a.Event), btn))
	}
	if len(buttons) == 0 {
		return ""
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
}

// Footer is the key hint line.
func Footer(extra string) string {
	text := "[b] Back • [q] Quit"
	if extra != "" {
		text = extra + " • " + text
	}
	return styles.HintStyle.Render(text)
}

// Toasts stacks the visible notifications, newest last.
func Toasts(toasts []state.Toast) string {
	var rows []string
	for _, t := range toasts {
		c := colorForLevel(t.Level)
		rows = append(rows, styles.ToastStyle.BorderForeground(c).Foreground(c).Render(t.Text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// ConfirmPrompt renders a pending yes/no question.
func ConfirmPrompt(c *state.Confirm) string {
	if c == nil {
		return ""
	}
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(styles.Gold).
		Padding(0, 2).
		MarginLeft(2).
		Render(c.Text + "\n\n[y] Yes   [n] No")
}

func cardTitle(text string) string {
	return lipgloss.NewStyle().Bold(true).Render(text)
}
