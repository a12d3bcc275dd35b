package components

import (
	"strings"
	"testing"

	"autosense/internal/projector"

	"github.com/charmbracelet/lipgloss"
)

func TestMetricChartKeepsWindow(t *testing.T) {
	c := NewMetricChart(projector.CPU, 5, 30, 8)

	c.SetHistory([]float64{1, 2, 3})
	if len(c.History) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(c.History))
	}

	c.SetHistory([]float64{1, 2, 3, 4, 5, 6, 7})
	if len(c.History) != 5 {
		t.Fatalf("expected window capped at 5, got %d", len(c.History))
	}
	if c.History[0] != 3 || c.History[4] != 7 {
		t.Errorf("expected the newest samples to survive, got %v", c.History)
	}

	if !strings.Contains(c.View(), "CPU History") {
		t.Error("chart title missing")
	}
}

func TestTreemapCoversGrid(t *testing.T) {
	tm := NewTreemap(40, 10)
	if tm.View() != "" {
		t.Error("expected empty view without a root")
	}

	tm.Root = &projector.Node{Name: "C:\\", Size: 600, Children: []*projector.Node{
		{Name: "Windows", Size: 300},
		{Name: "Users", Size: 200},
		{Name: "Temp", Size: 100},
	}}

	tiles := tm.Tiles()
	if len(tiles) != 3 {
		t.Fatalf("expected 3 tiles, got %d", len(tiles))
	}
	if tiles[0].Node.Name != "Windows" {
		t.Errorf("expected largest tile first, got %s", tiles[0].Node.Name)
	}

	var area float64
	for _, tile := range tiles {
		area += tile.Rect.Area()
	}
	if area < 399 || area > 401 {
		t.Errorf("tiles should cover the grid, got area %.1f", area)
	}

	view := tm.View()
	if got := lipgloss.Height(view); got != 10 {
		t.Errorf("expected 10 rows, got %d", got)
	}
	if got := lipgloss.Width(view); got != 40 {
		t.Errorf("expected 40 columns, got %d", got)
	}
	if !strings.Contains(view, "Windows") {
		t.Error("largest tile should be labelled")
	}
}

func TestWriteLabelTruncates(t *testing.T) {
	row := []rune(strings.Repeat(" ", 8))
	writeLabel(row, 0, 6, "Documents")
	if got := string(row); got != " Docu   " {
		t.Errorf("writeLabel() = %q", got)
	}
}
