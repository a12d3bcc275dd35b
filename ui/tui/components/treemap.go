package components

import (
	"math"
	"strings"

	"autosense/internal/projector"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tile colors cycle by size rank.
var tilePalette = []lipgloss.Color{"#7D56F4", "#f27b24", "#43BF6D", "#3C91E6", "#E4572E", "#A23B72", "#F3A712", "#29335C"}

// Treemap renders a directory's children as squarified tiles in a character
// grid. Each tile is labelled with its name and size when it fits.
type Treemap struct {
	Root   *projector.Node
	Width  int
	Height int
}

func NewTreemap(width, height int) *Treemap {
	return &Treemap{Width: width, Height: height}
}

func (t *Treemap) Init() tea.Cmd { return nil }

func (t *Treemap) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return t, nil }

func (t *Treemap) Resize(w, h int) {
	t.Width = w
	t.Height = h
}

// Tiles lays out the root's children in cell units.
func (t *Treemap) Tiles() []projector.Tile {
	if t.Root == nil || t.Width <= 0 || t.Height <= 0 {
		return nil
	}
	return projector.Squarify(t.Root.Children, projector.Rect{W: float64(t.Width), H: float64(t.Height)})
}

func (t *Treemap) View() string {
	tiles := t.Tiles()
	if len(tiles) == 0 {
		return ""
	}

	owner := make([][]int, t.Height)
	for y := range owner {
		owner[y] = make([]int, t.Width)
		for x := range owner[y] {
			owner[y][x] = -1
		}
	}
	labels := make([][]rune, t.Height)
	for y := range labels {
		labels[y] = []rune(strings.Repeat(" ", t.Width))
	}

	for i, tile := range tiles {
		x0, y0, x1, y1 := cells(tile.Rect, t.Width, t.Height)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				owner[y][x] = i
			}
		}
		if x1-x0 < 4 || y1 <= y0 {
			continue
		}
		writeLabel(labels[y0], x0, x1, tile.Node.Name)
		if y1-y0 > 1 {
			writeLabel(labels[y0+1], x0, x1, projector.FormatBytes(tile.Node.Size))
		}
	}

	var b strings.Builder
	for y := 0; y < t.Height; y++ {
		start := 0
		for x := 1; x <= t.Width; x++ {
			if x < t.Width && owner[y][x] == owner[y][start] {
				continue
			}
			b.WriteString(tileStyle(owner[y][start]).Render(string(labels[y][start:x])))
			start = x
		}
		if y < t.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func tileStyle(i int) lipgloss.Style {
	if i < 0 {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().
		Background(tilePalette[i%len(tilePalette)]).
		Foreground(lipgloss.Color("#FFFFFF"))
}

// cells rounds a layout rectangle to grid coordinates, clamped to the grid.
func cells(r projector.Rect, w, h int) (x0, y0, x1, y1 int) {
	x0 = clamp(int(math.Round(r.X)), 0, w)
	y0 = clamp(int(math.Round(r.Y)), 0, h)
	x1 = clamp(int(math.Round(r.X+r.W)), 0, w)
	y1 = clamp(int(math.Round(r.Y+r.H)), 0, h)
	return
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// writeLabel places text one cell inside [x0, x1), truncated to fit.
func writeLabel(row []rune, x0, x1 int, text string) {
	room := x1 - x0 - 2
	r := []rune(text)
	if len(r) > room {
		r = r[:room]
	}
	copy(row[x0+1:], r)
}

var _ Component = (*Treemap)(nil)
