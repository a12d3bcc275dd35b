package views

import (
	"fmt"
	"math"

	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	header := Header("AUTOSENSE X // SYSTEM CONTROL", s, props.Width)

	var menuItems []string
	listStartY := 6

	for i, item := range MenuItems {
		// Animation Logic
		dist := math.Abs(float64(i) - props.AnimCursor)
		selectionStrength := 0.0
		if dist < 1.0 {
			selectionStrength = 1.0 - dist
		}

		// Mouse Gradient Logic
		itemCenterY := listStartY + (i * 3) + 1
		mouseDistY := math.Abs(float64(props.MouseY - itemCenterY))

		borderColor := styles.BaseColor
		if mouseDistY < 10 {
			ratio := 1.0 - (mouseDistY / 10.0)
			if ratio > 0.5 {
				borderColor = lipgloss.Color("#aaa")
			}
		}

		if selectionStrength > 0.1 || i == props.MenuCursor {
			borderColor = styles.BrandColor
		}

		popOut := int(selectionStrength * 2)

		boxStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1).
			MarginLeft(2 + popOut).
			Width(40)

		if i == props.MenuCursor {
			boxStyle = boxStyle.Bold(true).Foreground(lipgloss.Color("#FFF"))
		} else {
			boxStyle = boxStyle.Foreground(lipgloss.Color("#AAA"))
		}

		title := item.Title
		if item.Page == state.PageAlerts && s.Dash.BadgeOn {
			title += " (" + s.Dash.Badge + ")"
		}
		if item.Page == state.PageLogin && s.Dash.Authenticated {
			title = "Account: " + userLabel(s)
		}

		text := fmt.Sprintf("%02d. %s", i+1, title)
		menuItems = append(menuItems, zone.Mark(MenuZone(i), boxStyle.Render(text)))
	}

	menuList := lipgloss.JoinVertical(lipgloss.Left, menuItems...)

	menuContent := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(styles.BrandColor).Render("CONTROL MODULES"),
		CopyStyle.Render("Select a module to begin."),
		menuList,
	)

	menuBox := MenuBoxStyle.Render(menuContent)

	controlsText := lipgloss.NewStyle().Foreground(lipgloss.Color("#333")).Render("[↑/↓] Navigate • [Enter] Select • [Q] Quit")
	footer := lipgloss.NewStyle().PaddingLeft(2).Render(lipgloss.JoinVertical(lipgloss.Left,
		StatusLine(s, props.SpinnerView),
		controlsText,
	))

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, header, menuBox, footer))
}

func userLabel(s state.AppState) string {
	if s.Dash.User != "" {
		return s.Dash.User
	}
	return "signed in"
}

var (
	MenuBoxStyle = lipgloss.NewStyle().
			Padding(1, 0).
			MarginTop(1)

	CopyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)
)
