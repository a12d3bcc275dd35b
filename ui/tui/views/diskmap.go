package views

import (
	"fmt"

	"autosense/internal/projector"
	"autosense/ui/tui/state"
	"autosense/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type DiskMapView struct{}

func (v DiskMapView) Render(s state.AppState, props ViewProps) string {
	header := Header("Disk Space Map", s, props.Width)

	drive := s.DiskDrive
	if drive == "" {
		drive = "(default)"
	}
	controls := fmt.Sprintf("Drive: %s   Depth: %d", lipgloss.NewStyle().Bold(true).Render(drive), s.DiskDepth)
	if len(s.Dash.Drives) > 1 {
		controls += lipgloss.NewStyle().Foreground(styles.Subtle).Render(fmt.Sprintf("   (%d drives)", len(s.Dash.Drives)))
	}

	var body string
	switch dm := s.Dash.DiskMap; {
	case !s.Dash.Authenticated:
		body = "Please login to access Disk Map"
	case dm == nil:
		body = "Press [s] to scan the selected drive."
	default:
		usage := fmt.Sprintf("%s  %s used of %s (%s free)  %.1f%%",
			Bar(dm.UsedPercent, 30),
			projector.FormatBytes(dm.Used), projector.FormatBytes(dm.Total), projector.FormatBytes(dm.Free),
			dm.UsedPercent)
		usage = lipgloss.NewStyle().Foreground(ColorForBand(dm.Band)).Render(usage)
		treemap := props.TreemapView
		if !dm.HasFolders() {
			treemap = "No accessible folders found in " + dm.Drive
		}
		body = lipgloss.JoinVertical(lipgloss.Left, usage, "", treemap)
	}

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		StatusLine(s, props.SpinnerView),
		lipgloss.NewStyle().Padding(1, 2).Render(controls),
		lipgloss.NewStyle().PaddingLeft(2).Render(body),
		ActionBar(state.PageDiskMap),
		Footer("[d] Next drive • [+/-] Depth"),
	))
}
